package backend

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/matzehuels/kudsight/pkg/errors"
	"github.com/matzehuels/kudsight/pkg/graph"
	"github.com/matzehuels/kudsight/pkg/httputil"
	"github.com/matzehuels/kudsight/pkg/observability"
)

const httpTimeout = 10 * time.Second

// Client is a [Backend] served by a kudsight server. Reads are retried with
// exponential backoff on transient failures; writes are sent once.
type Client struct {
	base     *url.URL
	http     *http.Client
	headers map[string]string
	retry   httputil.Policy
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithHeaders sets headers sent with every request.
func WithHeaders(h map[string]string) ClientOption {
	return func(c *Client) { c.headers = h }
}

// WithRetry sets the read retry policy. The delay doubles after each attempt.
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) { c.retry.Attempts, c.retry.Delay = attempts, delay }
}

// WithRetryHook calls fn before each read retry.
func WithRetryHook(fn func(attempt int, err error)) ClientOption {
	return func(c *Client) { c.retry.OnRetry = fn }
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if err := errors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse server URL")
	}
	c := &Client{
		base:  u,
		http:  &http.Client{Timeout: httpTimeout},
		retry: httputil.DefaultPolicy,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) ListDatasets(ctx context.Context) ([]string, error) {
	var names []string
	err := c.read(ctx, func() error {
		body, err := c.do(ctx, http.MethodGet, "/list-json", nil, "")
		if err != nil {
			return err
		}
		defer body.Close()
		names = nil
		return json.NewDecoder(body).Decode(&names)
	})
	if err != nil {
		return nil, err
	}
	return DatasetNames(names), nil
}

func (c *Client) FetchDataset(ctx context.Context, name string) ([]byte, error) {
	return c.getResource(ctx, name)
}

func (c *Client) OverlayExists(ctx context.Context, name string) (bool, error) {
	return c.head(ctx, name)
}

func (c *Client) FetchOverlay(ctx context.Context, name string) (graph.Overlay, error) {
	data, err := c.getResource(ctx, name)
	if err != nil {
		return nil, err
	}
	return graph.UnmarshalOverlay(data)
}

func (c *Client) AssetExists(ctx context.Context, name string) (bool, error) {
	return c.head(ctx, name)
}

func (c *Client) FetchAsset(ctx context.Context, name string) ([]byte, error) {
	return c.getResource(ctx, name)
}

// SubmitOverlay posts the layout once. A failed submission is not retried;
// the next interaction schedules a fresh one.
func (c *Client) SubmitOverlay(ctx context.Context, name string, o graph.Overlay) error {
	payload, err := json.Marshal(SavePosRequest{Filename: name, Data: o})
	if err != nil {
		return fmt.Errorf("encode layout: %w", err)
	}
	body, err := c.do(ctx, http.MethodPost, "/save-pos", bytes.NewReader(payload), "application/json")
	if err != nil {
		return err
	}
	defer body.Close()
	_, err = decodeResponse(body)
	return err
}

func (c *Client) Analyze(ctx context.Context, folder string) ([]string, error) {
	form := url.Values{"folderPath": {folder}}
	body, err := c.do(ctx, http.MethodPost, "/upload", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
	if err != nil {
		return nil, err
	}
	defer body.Close()
	resp, err := decodeResponse(body)
	if err != nil {
		return nil, err
	}
	return DatasetNames(resp.Files), nil
}

func decodeResponse(r io.Reader) (*Response, error) {
	var resp Response
	if err := json.NewDecoder(r).Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrNetwork, err)
	}
	if resp.Status != StatusOK {
		msg := resp.Message
		if msg == "" {
			msg = "request failed"
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s", msg)
	}
	return &resp, nil
}

func (c *Client) read(ctx context.Context, fn func() error) error {
	return c.retry.Do(ctx, fn)
}

func (c *Client) getResource(ctx context.Context, name string) ([]byte, error) {
	if err := errors.ValidateResourceName(name); err != nil {
		return nil, err
	}
	var data []byte
	err := c.read(ctx, func() error {
		body, err := c.do(ctx, http.MethodGet, "/out/"+url.PathEscape(name), nil, "")
		if err != nil {
			return err
		}
		defer body.Close()
		data, err = io.ReadAll(body)
		if err != nil {
			return &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
		}
		return nil
	})
	return data, err
}

func (c *Client) head(ctx context.Context, name string) (bool, error) {
	if err := errors.ValidateResourceName(name); err != nil {
		return false, err
	}
	var found bool
	err := c.read(ctx, func() error {
		body, err := c.do(ctx, http.MethodHead, "/out/"+url.PathEscape(name), nil, "")
		switch {
		case err == nil:
			body.Close()
			found = true
			return nil
		case stderrors.Is(err, ErrNotFound):
			found = false
			return nil
		}
		return err
	})
	return found, err
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return nil, err
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, c.base.Host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, c.base.Host, path, err)
		return nil, &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	hooks.OnResponse(ctx, method, c.base.Host, path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code >= 500, code == http.StatusTooManyRequests:
		return &httputil.RetryableError{
			Err:   fmt.Errorf("%w: status %d", ErrNetwork, code),
			After: httputil.RetryAfter(resp.Header),
		}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}

var _ Backend = (*Client)(nil)
