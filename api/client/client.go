package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/vocdoni/prodeposit-dapp/api"
	"github.com/vocdoni/prodeposit-dapp/log"
)

const (
	// HTTPGET is the method string used for calling Request()
	HTTPGET = http.MethodGet
	// HTTPPOST is the method string used for calling Request()
	HTTPPOST = http.MethodPost
	// HTTPPUT is the method string used for calling Request()
	HTTPPUT = http.MethodPut
	// HTTPDELETE is the method string used for calling Request()
	HTTPDELETE = http.MethodDelete

	errCodeNot200 = "API error"

	// DefaultRetries is the number of attempts of idempotent requests when
	// the server connection fails
	DefaultRetries = 3
	// DefaultTimeout is the default timeout for the HTTP client
	DefaultTimeout = 10 * time.Second
	// retryDelay is the pause between two attempts
	retryDelay = 500 * time.Millisecond
)

// Error is an error response of the dApp API.
type Error struct {
	HTTPStatus int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"error"`
}

func (e *Error) Error() string {
	if e.Code == 0 {
		return fmt.Sprintf("%s: %d (%s)", errCodeNot200, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("%s %d: %s", errCodeNot200, e.Code, e.Message)
}

// errorFrom builds the *Error of a response. Bodies that are not a coded API
// error are kept as the message.
func errorFrom(status int, data []byte) *Error {
	apiErr := &Error{HTTPStatus: status}
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Code = 0
		apiErr.Message = string(bytes.TrimSpace(data))
	}
	return apiErr
}

// HTTPclient is the dApp API HTTP client.
type HTTPclient struct {
	c       *http.Client
	host    *url.URL
	retries int
}

// New connects to the API host, checks it answers the ping endpoint and
// returns the handle.
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	c := &HTTPclient{
		c: &http.Client{
			Transport: &http.Transport{IdleConnTimeout: DefaultTimeout},
			Timeout:   DefaultTimeout,
		},
		host:    hostURL,
		retries: DefaultRetries,
	}
	log.Debugw("http client created", "host", hostURL.String())
	if err := c.ping(); err != nil {
		return nil, err
	}
	return c, nil
}

// SetHostAddr configures the host address of the API server and checks it
// answers.
func (c *HTTPclient) SetHostAddr(host *url.URL) error {
	c.host = host
	return c.ping()
}

// SetRetries configures the number of attempts of idempotent requests.
func (c *HTTPclient) SetRetries(n int) {
	if n < 1 {
		n = 1
	}
	c.retries = n
}

// SetTimeout configures the timeout for the HTTP client.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
	if tr, ok := c.c.Transport.(*http.Transport); ok {
		tr.ResponseHeaderTimeout = d
	}
}

func (c *HTTPclient) ping() error {
	return c.call(HTTPGET, nil, nil, http.StatusOK, api.PingEndpoint)
}

// call performs the request and decodes the response into out (if not nil).
// Any status other than expected is returned as *Error.
func (c *HTTPclient) call(method string, body, out any, expected int, urlPath ...string) error {
	data, status, err := c.Request(method, body, nil, urlPath...)
	if err != nil {
		return err
	}
	if status != expected {
		return errorFrom(status, data)
	}
	if out == nil || status == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Request performs a `method` type raw request to the endpoint specified in
// urlPath. If jsonBody is not nil it is sent as JSON. Returns the response
// body, the status code and an error.
//
// params are query parameters given as key, value pairs; an odd trailing key
// is ignored.
//
// GET, PUT and DELETE requests are retried when the connection fails. POST
// requests are sent once: the server may have started an action before the
// connection dropped.
func (c *HTTPclient) Request(method string, jsonBody any, params []string, urlPath ...string) ([]byte, int, error) {
	var body []byte
	if jsonBody != nil {
		var err error
		if body, err = json.Marshal(jsonBody); err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}

	u := *c.host
	u.Path = path.Join(u.Path, path.Join(urlPath...))
	if len(params) > 1 {
		values := url.Values{}
		for i := 0; i < len(params)-1; i += 2 {
			values.Set(params[i], params[i+1])
		}
		u.RawQuery = values.Encode()
	}

	log.Debugw("http client request", "type", method, "url", u.String(), "body", truncate(body, 512))

	attempts := c.retries
	if method == HTTPPOST {
		attempts = 1
	}
	var (
		resp *http.Response
		err  error
	)
	for i := 1; i <= attempts; i++ {
		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		req, rerr := http.NewRequest(method, u.String(), reqBody)
		if rerr != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", rerr)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Accept", "application/json")
		}
		if resp, err = c.c.Do(req); err == nil {
			break
		}
		log.Warnw("http request failed", "error", err.Error(), "attempt", i, "attempts", attempts)
		if i < attempts {
			time.Sleep(retryDelay)
		}
	}
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s failed: %w", method, u.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
