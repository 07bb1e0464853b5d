package upstream

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/hashicorp/go-retryablehttp"
)

// ErrMalformedResponse reports a payload that decoded but lacks the
// expected shape, or did not decode at all.
var ErrMalformedResponse = errors.New("malformed upstream response")

// Fetcher loads one user's record from one provider.
type Fetcher[T any] interface {
    Fetch(ctx context.Context, username string) (T, error)
}

// Doer is satisfied by *http.Client.
type Doer interface {
    Do(req *http.Request) (*http.Response, error)
}

// FetchError is returned by every Fetch failure: network, status or shape.
type FetchError struct {
    Provider string
    Username string
    Err      error
}

func (e *FetchError) Error() string {
    return fmt.Sprintf("%s fetch %q: %v", e.Provider, e.Username, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// StatusError is a non-2xx upstream response.
type StatusError struct {
    Code int
    Body string
}

func (e *StatusError) Error() string {
    if e.Body == "" { return fmt.Sprintf("status %d %s", e.Code, http.StatusText(e.Code)) }
    return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// NewHTTPClient builds the transport shared by the provider clients. retries
// is 0 unless an operator opts in; the clients themselves never retry.
func NewHTTPClient(timeout time.Duration, retries int) *http.Client {
    rc := retryablehttp.NewClient()
    rc.RetryMax = retries
    rc.Logger = nil
    rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
    rc.HTTPClient.Timeout = timeout
    return rc.StandardClient()
}

const maxErrBody = 512

func getJSON(ctx context.Context, c Doer, url string, out any) error {
    req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
    if err != nil { return err }
    req.Header.Set("Accept", "application/json")
    resp, err := c.Do(req)
    if err != nil { return err }
    defer resp.Body.Close()
    b, err := io.ReadAll(resp.Body)
    if err != nil { return err }
    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        body := strings.TrimSpace(string(b))
        if len(body) > maxErrBody { body = body[:maxErrBody] }
        return &StatusError{Code: resp.StatusCode, Body: body}
    }
    if err := json.Unmarshal(b, out); err != nil {
        return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
    }
    return nil
}

func malformed(format string, args ...any) error {
    return fmt.Errorf("%w: %s", ErrMalformedResponse, fmt.Sprintf(format, args...))
}
