// Package client talks to the LiftAndLevel API on behalf of the CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/2beens/liftandlevel/internal/catalog"
	"github.com/2beens/liftandlevel/internal/telemetry/tracing"
	"github.com/2beens/liftandlevel/internal/users"
	"github.com/2beens/liftandlevel/internal/workout"
	"github.com/2beens/liftandlevel/pkg"
)

const defaultTimeout = 10 * time.Second

var ErrNotLoggedIn = errors.New("not logged in")

// APIError is a non-2xx reply of the API.
type APIError struct {
	Status  int
	Message string
	Code    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// HasCode reports whether err is an APIError carrying code.
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Session is the identity returned by register and login.
type Session struct {
	UserID int
	Name   string
	XP     int64
	Level  int
	Rank   string
	Token  string
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// Session returns the current session, nil when logged out.
func (c *Client) Session() *Session {
	return c.session
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", pkg.ContentType.JSON)
	if in != nil {
		req.Header.Set("Content-Type", pkg.ContentType.JSON)
	}
	if c.session != nil {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var errResp pkg.ErrorResponse
		if err := json.Unmarshal(respBytes, &errResp); err == nil && errResp.Message != "" {
			apiErr.Message = errResp.Message
			apiErr.Code = errResp.Code
		} else {
			apiErr.Message = strings.TrimSpace(string(respBytes))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, path string, in any) (_ *Session, err error) {
	var authenticated struct {
		users.User
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, path, in, &authenticated); err != nil {
		return nil, err
	}

	c.session = &Session{
		UserID: authenticated.ID,
		Name:   authenticated.Name,
		XP:     authenticated.XP,
		Level:  authenticated.Level,
		Rank:   authenticated.Rank,
		Token:  authenticated.Token,
	}
	return c.session, nil
}

func (c *Client) Register(ctx context.Context, name, email, password string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "client.register")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return c.authenticate(ctx, "/auth/register", users.Registration{
		Name:     name,
		Email:    email,
		Password: password,
	})
}

func (c *Client) Login(ctx context.Context, email, password string) (_ *Session, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "client.login")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	return c.authenticate(ctx, "/auth/login", users.Credentials{
		Email:    email,
		Password: password,
	})
}

// Logout revokes the session on the server and forgets it locally, even if the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	if c.session == nil {
		return ErrNotLoggedIn
	}
	defer func() {
		c.session = nil
	}()
	return c.do(ctx, http.MethodGet, "/auth/logout", nil, nil)
}

func (c *Client) SubmitWorkout(ctx context.Context, sub workout.Submission) (_ *workout.SubmitResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "client.submitWorkout")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if c.session == nil {
		return nil, ErrNotLoggedIn
	}

	nw := workout.NewWorkout{
		Date:     sub.Date,
		Duration: sub.Duration,
		Items:    make([]workout.NewItem, 0, len(sub.Items)),
	}
	for _, it := range sub.Items {
		nw.Items = append(nw.Items, workout.NewItem{
			Name:   it.Name,
			Sets:   it.Sets,
			Reps:   it.Reps,
			Weight: it.Weight,
		})
	}

	var result workout.SubmitResult
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/users/%d/workouts", c.session.UserID), nw, &result); err != nil {
		return nil, err
	}

	c.session.XP = result.UserXP
	c.session.Level = result.Level
	c.session.Rank = result.Rank
	return &result, nil
}

func (c *Client) History(ctx context.Context) (_ []workout.Workout, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "client.history")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if c.session == nil {
		return nil, ErrNotLoggedIn
	}

	workouts := make([]workout.Workout, 0)
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/users/%d/workouts", c.session.UserID), nil, &workouts); err != nil {
		return nil, err
	}
	return workouts, nil
}

// Search implements catalog.Searcher.
func (c *Client) Search(ctx context.Context, q string) ([]catalog.Exercise, error) {
	exercises := make([]catalog.Exercise, 0)
	if err := c.do(ctx, http.MethodGet, "/exercises?q="+url.QueryEscape(q), nil, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

var _ catalog.Searcher = (*Client)(nil)
