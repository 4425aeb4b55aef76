// Package remote talks to a report server over HTTP. Every call is bounded
// by the client timeout and none is retried.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"famreport/internal/core"
)

const DefaultTimeout = 3 * time.Second

var (
	// ErrDisabled is returned by every call on a client without a base URL.
	ErrDisabled = errors.New("remote storage disabled")
	// ErrNoData means the server answered but holds no report.
	ErrNoData = errors.New("remote has no report")
)

// envelope is the body shape of the report endpoint.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
}

// New returns a client for baseURL. An empty baseURL yields a disabled
// client.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{},
		timeout: timeout,
	}
}

func (c *Client) Enabled() bool { return c != nil && c.baseURL != "" }

// FetchReport downloads and migrates the server's report.
func (c *Client) FetchReport(ctx context.Context) (core.Report, error) {
	if !c.Enabled() {
		return core.Report{}, ErrDisabled
	}
	resp, err := c.do(ctx, http.MethodGet, nil)
	if err != nil {
		return core.Report{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return core.Report{}, ErrNoData
	}
	if err := checkStatus(resp); err != nil {
		return core.Report{}, err
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return core.Report{}, fmt.Errorf("decode response: %w", err)
	}
	if isEmpty(env.Data) {
		return core.Report{}, ErrNoData
	}
	payload, err := core.DecodePayload(env.Data)
	if err != nil {
		return core.Report{}, err
	}
	return core.Migrate(payload), nil
}

func (c *Client) SaveReport(ctx context.Context, r core.Report) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	body, err := json.Marshal(envelope{Data: data})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *Client) DeleteReport(ctx context.Context) error {
	if !c.Enabled() {
		return ErrDisabled
	}
	resp, err := c.do(ctx, http.MethodDelete, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *Client) do(ctx context.Context, method string, body []byte) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/report", rd)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%s /report: %w", method, err)
	}
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelBody releases the request timeout once the body is closed.
type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// isEmpty reports whether data is absent, null or an empty object; an
// empty store answers with {"data":{}}.
func isEmpty(data json.RawMessage) bool {
	switch string(bytes.TrimSpace(data)) {
	case "", "null", "{}":
		return true
	}
	return false
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
}
