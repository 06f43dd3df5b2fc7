package webdav

//go:generate mockery -name Client

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"time"

	"github.com/sidkik/davsync/pkg/errors"
)

// MethodMkcol is the WebDAV method for creating a collection.
const MethodMkcol = "MKCOL"

// Client is the interface for changing files on a WebDAV server. Every
// method returns the status code of the response. A non-nil error means that
// no response was received, and is always an errors.TransportError.
type Client interface {
	Get(ctx context.Context, url string) (int, []byte, error)
	Put(ctx context.Context, url string, body io.Reader, size int64) (int, error)
	Delete(ctx context.Context, url string) (int, error)
	Mkcol(ctx context.Context, url string) (int, error)

	// FetchListing gets the directory listing of the base URL the client
	// was created with.
	FetchListing(ctx context.Context) ([]ListingEntry, error)
}

type client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a Client for the server at baseURL. Credentials embedded in the
// URL are sent as basic auth. A zero timeout means requests never time out.
func New(baseURL string, timeout time.Duration) Client {
	return &client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (c *client) Get(ctx context.Context, url string) (int, []byte, error) {
	resp, err := c.do(ctx, http.MethodGet, url, nil, 0)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, transportError(http.MethodGet, url,
			errors.WithContext(err, "read body"))
	}
	return resp.StatusCode, body, nil
}

func (c *client) Put(ctx context.Context, url string, body io.Reader, size int64) (int, error) {
	return c.statusOnly(ctx, http.MethodPut, url, body, size)
}

func (c *client) Delete(ctx context.Context, url string) (int, error) {
	return c.statusOnly(ctx, http.MethodDelete, url, nil, 0)
}

func (c *client) Mkcol(ctx context.Context, url string) (int, error) {
	return c.statusOnly(ctx, MethodMkcol, url, nil, 0)
}

func (c *client) FetchListing(ctx context.Context) ([]ListingEntry, error) {
	status, body, err := c.Get(ctx, c.baseURL)
	if err != nil {
		return nil, err
	}

	if status < 200 || status >= 300 {
		return nil, errors.RemoteRejection{
			Method:     http.MethodGet,
			URL:        Redact(c.baseURL),
			StatusCode: status,
		}
	}

	entries, err := ParseListing(bytes.NewReader(body))
	if err != nil {
		return nil, errors.WithContext(err, "parse listing")
	}
	return entries, nil
}

func (c *client) statusOnly(ctx context.Context, method, url string,
	body io.Reader, size int64) (int, error) {

	resp, err := c.do(ctx, method, url, body, size)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	// Drain the body so that the connection can be reused.
	io.Copy(ioutil.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *client) do(ctx context.Context, method, url string,
	body io.Reader, size int64) (*http.Response, error) {

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, transportError(method, url, errors.WithContext(err, "create request"))
	}
	if body != nil {
		req.ContentLength = size
		if size == 0 {
			req.Body = http.NoBody
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(method, url, err)
	}
	return resp, nil
}

func transportError(method, rawURL string, err error) error {
	// The underlying *url.Error includes the full URL, password included.
	if urlErr, ok := errors.RootCause(err).(*url.Error); ok {
		err = urlErr.Err
	}
	return errors.TransportError{
		Method: method,
		URL:    Redact(rawURL),
		Err:    err,
	}
}

// Redact returns rawURL with the password replaced by "xxxxx".
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	return u.Redacted()
}
