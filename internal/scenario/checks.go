package scenario

import (
	"context"
	"fmt"
	"net/http"

	"homeharness/internal/client"
	"homeharness/internal/payload"
	"homeharness/internal/report"
)

// expectStatus fails with msg unless resp carries want.
func expectStatus(resp *client.Response, want int, msg string) error {
	if resp.StatusCode != want {
		return report.Fail(msg, resp)
	}
	return nil
}

// decode normalizes the response body, failing when it is not JSON.
func decode(resp *client.Response) (any, error) {
	p, err := payload.Normalize(resp.Body)
	if err != nil {
		return nil, report.Fail("Response is not JSON", resp)
	}
	return p, nil
}

// expectString fails with msg unless the payload field key equals want.
func expectString(p any, key, want, msg string, resp *client.Response) error {
	got, ok := payload.String(p, key)
	if !ok || got != want {
		return report.Fail(msg, resp)
	}
	return nil
}

// expectNotFound sends one request referencing a missing resource and requires 404.
func expectNotFound(ctx context.Context, c *client.Client, method, path string, body any, okMsg, failMsg string) (string, error) {
	resp, err := c.Do(ctx, method, path, body)
	if err != nil {
		return "", err
	}
	if err := expectStatus(resp, http.StatusNotFound, failMsg); err != nil {
		return "", err
	}
	return okMsg, nil
}

// create posts body to path, requires 201 and an echoed name, and returns the
// captured handle together with the payload for further checks.
func create(ctx context.Context, c *client.Client, kind, path string, body any, name string) (Handle, any, *client.Response, error) {
	resp, err := c.Post(ctx, path, body)
	if err != nil {
		return Handle{}, nil, nil, err
	}
	if err := expectStatus(resp, http.StatusCreated, fmt.Sprintf("Create %s Failed", kind)); err != nil {
		return Handle{}, nil, resp, err
	}

	p, err := decode(resp)
	if err != nil {
		return Handle{}, nil, resp, err
	}
	id, ok := payload.ResolveID(p)
	if !ok {
		return Handle{}, nil, resp, report.Fail(fmt.Sprintf("%s id missing in create response", kind), resp)
	}
	if err := expectString(p, "name", name, fmt.Sprintf("%s name mismatch in create response", kind), resp); err != nil {
		return Handle{}, nil, resp, err
	}

	return Handle{ID: id, Name: name}, p, resp, nil
}

// listContains requires a 200 list response at path containing id.
func listContains(ctx context.Context, c *client.Client, path, id, failMsg, missingMsg string) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK, failMsg); err != nil {
		return err
	}

	p, err := decode(resp)
	if err != nil {
		return err
	}
	items, ok := payload.List(p)
	if !ok || !payload.ContainsID(items, id) {
		return report.Fail(missingMsg, resp)
	}
	return nil
}

// getNamed requires a 200 response at path whose payload name is h.Name.
func getNamed(ctx context.Context, c *client.Client, kind, path string, h Handle) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := expectStatus(resp, http.StatusOK, fmt.Sprintf("Get Single %s Failed", kind)); err != nil {
		return err
	}

	p, err := decode(resp)
	if err != nil {
		return err
	}
	return expectString(p, "name", h.Name, fmt.Sprintf("%s name mismatch in details", kind), resp)
}

// update puts body to path, requires 200 and a payload naming newName. When the
// payload echoes an identifier it must still be h.ID. A follow-up read must show
// the same.
func update(ctx context.Context, c *client.Client, kind, path string, body any, h Handle, newName string) (any, *client.Response, error) {
	resp, err := c.Put(ctx, path, body)
	if err != nil {
		return nil, nil, err
	}
	if err := expectStatus(resp, http.StatusOK, fmt.Sprintf("Update %s Failed", kind)); err != nil {
		return nil, resp, err
	}

	p, err := decode(resp)
	if err != nil {
		return nil, resp, err
	}
	if err := expectString(p, "name", newName, fmt.Sprintf("%s name did not update", kind), resp); err != nil {
		return nil, resp, err
	}
	if id, ok := payload.ResolveID(p); ok && id != h.ID {
		return nil, resp, report.Fail(fmt.Sprintf("%s id changed on update", kind), resp)
	}
	if err := readBack(ctx, c, kind, path, h.ID, newName); err != nil {
		return nil, resp, err
	}
	return p, resp, nil
}

// readBack fetches path after an update and requires the new name under the
// same identifier.
func readBack(ctx context.Context, c *client.Client, kind, path, id, name string) error {
	resp, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	msg := fmt.Sprintf("%s update not visible on read", kind)
	if err := expectStatus(resp, http.StatusOK, msg); err != nil {
		return err
	}

	p, err := decode(resp)
	if err != nil {
		return err
	}
	if err := expectString(p, "name", name, msg, resp); err != nil {
		return err
	}
	if got, ok := payload.ResolveID(p); ok && got != id {
		return report.Fail(msg, resp)
	}
	return nil
}

// remove deletes path and requires 200.
func remove(ctx context.Context, c *client.Client, kind, path string) error {
	resp, err := c.Delete(ctx, path)
	if err != nil {
		return err
	}
	return expectStatus(resp, http.StatusOK, fmt.Sprintf("Delete %s Failed", kind))
}
