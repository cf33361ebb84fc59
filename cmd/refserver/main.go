package main

import (
	"os"

	"homeharness/internal/cli"
)

func main() {
	os.Exit(cli.Execute(cli.NewRefServerCommand()))
}
