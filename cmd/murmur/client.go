// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Murmur Contributors

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	murmurerr "github.com/murmur-dev/murmur/pkg/errors"
)

// defaultHTTPClient is the package-level HTTP client used by commands that
// talk to a running murmur server. Overridden in tests via httptest.
var defaultHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}

// apiClient provides HTTP access to a running murmur server.
type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(addr string) *apiClient {
	return &apiClient{
		baseURL: "http://" + addr,
		http:    defaultHTTPClient,
	}
}

// getJSON performs a GET request and decodes the JSON response into dest.
func (c *apiClient) getJSON(path string, dest any) error {
	req, err := http.NewRequest(http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return murmurerr.Wrap(err, murmurerr.CodeCLIInputInvalid, "building request")
	}
	return c.do(req, dest)
}

// postJSON performs a POST request with a JSON body and decodes the JSON
// response into dest. A nil body sends an empty request.
func (c *apiClient) postJSON(path string, body, dest any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return murmurerr.Wrap(err, murmurerr.CodeCLIInputInvalid, "encoding request body")
		}
	}
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return murmurerr.Wrap(err, murmurerr.CodeCLIInputInvalid, "building request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, dest)
}

// send performs a bodyless request (DELETE) or a JSON request (PATCH) and
// discards any response body.
func (c *apiClient) send(method, path string, body any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return murmurerr.Wrap(err, murmurerr.CodeCLIInputInvalid, "encoding request body")
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		return murmurerr.Wrap(err, murmurerr.CodeCLIInputInvalid, "building request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, nil)
}

func (c *apiClient) do(req *http.Request, dest any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if isDialError(err) {
			return murmurerr.New(murmurerr.CodeCLIServerNotRunning, "murmur server is not running (connection refused)")
		}
		return murmurerr.Wrap(err, murmurerr.CodeCLISetupFailure, "request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		payload, _ := io.ReadAll(resp.Body)
		return serverError(resp.StatusCode, payload)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return murmurerr.Wrap(err, murmurerr.CodeCLISetupFailure, "invalid response")
	}
	return nil
}

// serverError converts a non-2xx response into a coded error, pulling the
// detail string out of the problem+json body when present.
func serverError(status int, payload []byte) error {
	detail := string(payload)
	var problem struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(payload, &problem); err == nil && problem.Detail != "" {
		detail = problem.Detail
	}

	code := murmurerr.CodeServerInternalFailure
	switch {
	case status == http.StatusConflict:
		code = murmurerr.CodeClusterRegenerateInFlight
	case status == http.StatusNotFound:
		code = murmurerr.CodeStoreEntryNotFound
	case status >= 400 && status < 500:
		code = murmurerr.CodeCLIInputInvalid
	}
	return murmurerr.Errorf(code, "server returned %d: %s", status, detail)
}

func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
