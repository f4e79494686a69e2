package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"ops-console-backend/internal/model"
	"ops-console-backend/internal/resource"
	"ops-console-backend/internal/store"
	"ops-console-backend/internal/view"
)

// Client talks to the console JSON API.
type Client struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// New creates a client for baseURL. token may be empty until Login.
func New(baseURL, token string, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30*time.Second).
		SetRedirectPolicy(resty.NoRedirectPolicy()).
		SetHeader("Accept", "application/json")
	if token != "" {
		client.SetAuthToken(token)
	}
	return &Client{httpClient: client, logger: logger}
}

// ErrUnauthenticated is returned when the server wants a sign-in first.
var ErrUnauthenticated = errors.New("not signed in: run opsctl login and pass the token")

// APIError is a non-2xx answer the client could not map to a domain error.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

type errorBody struct {
	Error  string                `json:"error"`
	Fields []resource.FieldError `json:"fields"`
}

// LoginResult is the answer to a successful sign-in.
type LoginResult struct {
	Token      string    `json:"token"`
	ExpiresAt  time.Time `json:"expires_at"`
	RedirectTo string    `json:"redirect_to"`
}

// Login signs in and uses the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var result LoginResult
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&result).
		SetError(&errorBody{}).
		Post("/login")
	if err != nil {
		return LoginResult{}, failed(resp, err, "login")
	}
	if err := c.check(resp, "session", 0); err != nil {
		return LoginResult{}, err
	}
	c.httpClient.SetAuthToken(result.Token)
	return result, nil
}

// failed wraps a transport error. A redirect to the login page means the
// session is missing.
func failed(resp *resty.Response, err error, op string) error {
	if resp != nil && resp.StatusCode() == http.StatusFound {
		return fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// check maps an error response back onto the domain errors the server
// produced.
func (c *Client) check(resp *resty.Response, kind string, id int64) error {
	if !resp.IsError() {
		return nil
	}
	body, _ := resp.Error().(*errorBody)
	if body == nil {
		body = &errorBody{Error: resp.Status()}
	}
	c.logger.Debug("api call failed",
		zap.String("url", resp.Request.URL),
		zap.Int("status_code", resp.StatusCode()),
		zap.String("error", body.Error),
	)

	switch resp.StatusCode() {
	case http.StatusUnauthorized:
		if kind != "session" {
			return ErrUnauthenticated
		}
	case http.StatusUnprocessableEntity:
		return &resource.ValidationError{Kind: kind, Fields: body.Fields}
	case http.StatusNotFound:
		if id != 0 {
			return &store.NotFoundError{Kind: kind, ID: id}
		}
	case http.StatusMethodNotAllowed:
		return fmt.Errorf("%s: %w", kind, resource.ErrUnsupported)
	}
	return &APIError{StatusCode: resp.StatusCode(), Message: body.Error}
}

// Resource is the API of one entity kind. It satisfies the backend of the
// optimistic store.
type Resource[T any] struct {
	c    *Client
	kind string
}

// For returns the resource client of def's kind.
func For[T any](c *Client, def *resource.Definition[T]) *Resource[T] {
	return &Resource[T]{c: c, kind: def.Kind}
}

func (r *Resource[T]) path(id int64) string {
	p := "/admin/" + r.kind
	if id != 0 {
		p += "/" + strconv.FormatInt(id, 10)
	}
	return p
}

type listResponse[T any] struct {
	Rows  []T        `json:"rows"`
	Total int        `json:"total"`
	Query view.Query `json:"query"`
}

// List fetches every row of the kind in server order.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var result listResponse[T]
	resp, err := r.c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&errorBody{}).
		Get(r.path(0))
	if err != nil {
		return nil, failed(resp, err, "list "+r.kind)
	}
	if err := r.c.check(resp, r.kind, 0); err != nil {
		return nil, err
	}
	return result.Rows, nil
}

// Create submits in and returns the stored row.
func (r *Resource[T]) Create(ctx context.Context, in resource.Input[T]) (T, error) {
	var row T
	resp, err := r.c.httpClient.R().
		SetContext(ctx).
		SetBody(in).
		SetResult(&row).
		SetError(&errorBody{}).
		Post(r.path(0))
	if err != nil {
		return row, failed(resp, err, "create "+r.kind)
	}
	return row, r.c.check(resp, r.kind, 0)
}

// Update sends the fields set in p.
func (r *Resource[T]) Update(ctx context.Context, id int64, p resource.Patch[T]) error {
	resp, err := r.c.httpClient.R().
		SetContext(ctx).
		SetBody(p).
		SetError(&errorBody{}).
		Patch(r.path(id))
	if err != nil {
		return failed(resp, err, fmt.Sprintf("update %s %d", r.kind, id))
	}
	return r.c.check(resp, r.kind, id)
}

// Toggle flips the status of row id and returns the new status.
func (r *Resource[T]) Toggle(ctx context.Context, id int64) (model.Status, error) {
	var result struct {
		Status model.Status `json:"status"`
	}
	resp, err := r.c.httpClient.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&errorBody{}).
		Post(r.path(id) + "/toggle")
	if err != nil {
		return "", failed(resp, err, fmt.Sprintf("toggle %s %d", r.kind, id))
	}
	if err := r.c.check(resp, r.kind, id); err != nil {
		return "", err
	}
	return result.Status, nil
}

// Delete removes row id.
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	resp, err := r.c.httpClient.R().
		SetContext(ctx).
		SetError(&errorBody{}).
		Delete(r.path(id))
	if err != nil {
		return failed(resp, err, fmt.Sprintf("delete %s %d", r.kind, id))
	}
	return r.c.check(resp, r.kind, id)
}
