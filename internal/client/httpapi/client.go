// Package httpapi is the HTTP/JSON adapter behind the client's backend
// contracts. One Client implements identity, documents and blobs against
// the Rosterhub server, holds the access/refresh token pair, retries once
// on an expired access token, and publishes session changes to its
// subscribers.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dpetukhov/rosterhub/internal/client/backend"
	"github.com/dpetukhov/rosterhub/internal/logging"
	"github.com/dpetukhov/rosterhub/internal/netx"
)

// expirySkew renews the access token slightly before its actual deadline so
// a request does not race the server's clock.
const expirySkew = 30 * time.Second

type Client struct {
	baseURL string
	httpc   *http.Client
	log     logging.Logger

	mu           sync.Mutex
	uid          string
	accessToken  string
	refreshToken string
	subs         map[int]func(backend.Event)
	nextSub      int
}

var (
	_ backend.Identity  = (*Client)(nil)
	_ backend.Documents = (*Client)(nil)
	_ backend.Blobs     = (*Client)(nil)
)

// New creates a client for the server at baseURL (e.g. "http://host:8080").
func New(baseURL string, log logging.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		log:     log,
		subs:    make(map[int]func(backend.Event)),
	}
}

// ---- wire types ----

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	UID          string `json:"uid"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type profileRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	ProfileImageURL string `json:"profile_image_url"`
}

type userJSON struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	ProfileImageURL string    `json:"profile_image_url"`
	CreatedAt       time.Time `json:"created_at"`
}

type usersPageResponse struct {
	Users []userJSON `json:"users"`
}

type uploadRequest struct {
	Key string `json:"key"`
}

type urlResponse struct {
	URL string `json:"url"`
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// Error codes the server sends alongside non-2xx statuses.
const (
	codeCredentialRejected = "credential_rejected"
	codeTokenExpired       = "token_expired"
	codeRefreshExpired     = "refresh_expired"
)

// ---- backend.Identity ----

func (c *Client) CreateCredential(ctx context.Context, email, password string) (string, error) {
	var resp tokenResponse
	err := c.call(ctx, http.MethodPost, "/api/register", nil, credentialsRequest{Email: email, Password: password}, &resp, "")
	if err != nil {
		return "", err
	}
	c.setSession(resp.UID, resp.AccessToken, resp.RefreshToken)
	return resp.UID, nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) error {
	var resp tokenResponse
	err := c.call(ctx, http.MethodPost, "/api/login", nil, credentialsRequest{Email: email, Password: password}, &resp, "")
	if err != nil {
		return err
	}
	c.setSession(resp.UID, resp.AccessToken, resp.RefreshToken)
	return nil
}

// SignOut drops the local session and revokes the refresh token, best
// effort. Dropping the local session always succeeds, matching the
// contract that sign-out itself cannot fail.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	refresh := c.refreshToken
	c.mu.Unlock()

	if refresh != "" {
		if err := c.call(ctx, http.MethodPost, "/api/logout", nil, refreshRequest{RefreshToken: refresh}, nil, ""); err != nil {
			c.log.Warn(ctx, "refresh token revocation", "error", err)
		}
	}
	c.clearSession()
	return nil
}

// SessionChanges registers fn and delivers the current session state
// immediately, then every change in emission order.
func (c *Client) SessionChanges(fn func(backend.Event)) func() {
	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	current := backend.Event{UID: c.uid}
	c.mu.Unlock()

	fn(current)
	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}
}

// ---- backend.Documents ----

func (c *Client) PutUserDocument(ctx context.Context, rec backend.UserRecord) error {
	body := profileRequest{Name: rec.DisplayName, Email: rec.Email, ProfileImageURL: rec.ProfileImageURL}
	return c.callAuthed(ctx, http.MethodPut, "/api/users/"+url.PathEscape(rec.ID), nil, body, nil)
}

func (c *Client) QueryUsersPage(ctx context.Context, after *backend.Cursor, limit int) ([]backend.UserRecord, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	if after != nil {
		q.Set("after_ts", after.CreatedAt.Format(time.RFC3339Nano))
		q.Set("after_id", after.ID)
	}

	var resp usersPageResponse
	if err := c.callAuthed(ctx, http.MethodGet, "/api/users", q, nil, &resp); err != nil {
		return nil, err
	}

	recs := make([]backend.UserRecord, 0, len(resp.Users))
	for _, u := range resp.Users {
		recs = append(recs, backend.UserRecord{
			ID:              u.ID,
			DisplayName:     u.Name,
			Email:           u.Email,
			ProfileImageURL: u.ProfileImageURL,
			CreatedAt:       u.CreatedAt,
		})
	}
	return recs, nil
}

// ---- backend.Blobs ----

// Upload asks the server for a presigned PUT URL for key and uploads the
// bytes directly to object storage.
func (c *Client) Upload(ctx context.Context, key string, data []byte) error {
	var resp urlResponse
	if err := c.callAuthed(ctx, http.MethodPost, "/api/uploads", nil, uploadRequest{Key: key}, &resp); err != nil {
		return err
	}
	return netx.UploadToPresignedURL(ctx, resp.URL, data)
}

func (c *Client) PublicURL(ctx context.Context, key string) (string, error) {
	q := url.Values{}
	q.Set("key", key)
	var resp urlResponse
	if err := c.callAuthed(ctx, http.MethodGet, "/api/uploads/url", q, nil, &resp); err != nil {
		return "", err
	}
	return resp.URL, nil
}

// ---- session bookkeeping ----

func (c *Client) setSession(uid, access, refresh string) {
	c.mu.Lock()
	c.uid = uid
	c.accessToken = access
	c.refreshToken = refresh
	subs := c.subsLocked()
	c.mu.Unlock()
	emit(backend.Event{UID: uid}, subs)
}

func (c *Client) clearSession() {
	c.mu.Lock()
	wasSignedIn := c.uid != ""
	c.uid = ""
	c.accessToken = ""
	c.refreshToken = ""
	subs := c.subsLocked()
	c.mu.Unlock()
	if wasSignedIn {
		emit(backend.Event{}, subs)
	}
}

func (c *Client) subsLocked() []func(backend.Event) {
	subs := make([]func(backend.Event), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return subs
}

func emit(ev backend.Event, subs []func(backend.Event)) {
	for _, fn := range subs {
		fn(ev)
	}
}

// ---- transport ----

// callAuthed performs an authenticated request. An access token past its
// expiry is refreshed up front; a token-expired rejection from the server
// triggers one refresh-and-retry. If the refresh token is gone or refused,
// the session is dropped and the session stream reports signed-out.
func (c *Client) callAuthed(ctx context.Context, method, path string, query url.Values, in, out any) error {
	c.mu.Lock()
	access := c.accessToken
	c.mu.Unlock()

	if access == "" {
		return backend.ErrUnauthorized
	}
	if tokenExpired(access) {
		var err error
		if access, err = c.refresh(ctx); err != nil {
			return err
		}
	}

	err := c.call(ctx, method, path, query, in, out, access)
	if apiErr, ok := err.(*apiError); ok && apiErr.Code == codeTokenExpired {
		if access, err = c.refresh(ctx); err != nil {
			return err
		}
		err = c.call(ctx, method, path, query, in, out, access)
	}
	return mapAPIError(err)
}

// refresh exchanges the refresh token for a new pair.
func (c *Client) refresh(ctx context.Context) (string, error) {
	c.mu.Lock()
	refresh := c.refreshToken
	c.mu.Unlock()

	if refresh == "" {
		return "", backend.ErrUnauthorized
	}

	var resp tokenResponse
	if err := c.call(ctx, http.MethodPost, "/api/refresh", nil, refreshRequest{RefreshToken: refresh}, &resp, ""); err != nil {
		if _, ok := err.(*apiError); ok {
			// The session is dead; there is nothing to retry with.
			c.clearSession()
			return "", backend.ErrUnauthorized
		}
		return "", mapAPIError(err)
	}

	c.mu.Lock()
	c.accessToken = resp.AccessToken
	c.refreshToken = resp.RefreshToken
	if resp.UID != "" {
		c.uid = resp.UID
	}
	c.mu.Unlock()
	return resp.AccessToken, nil
}

// apiError is a non-2xx response before mapping to backend errors.
type apiError struct {
	Status  int
	Message string
	Code    string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, e.Message)
}

// call performs one JSON request/response cycle. A non-empty bearer token
// is attached as-is. Transport failures come back wrapped in
// backend.ErrUnavailable; non-2xx statuses come back as *apiError (or
// already mapped for the unauthenticated endpoints).
func (c *Client) call(ctx context.Context, method, path string, query url.Values, in, out any, bearer string) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", backend.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload errorResponse
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		_ = json.Unmarshal(b, &payload)
		if payload.Error == "" {
			payload.Error = resp.Status
		}
		if payload.Code == codeCredentialRejected {
			return &backend.CredentialError{Message: payload.Error}
		}
		return &apiError{Status: resp.StatusCode, Message: payload.Error, Code: payload.Code}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// mapAPIError converts leftover *apiError values into backend sentinels.
func mapAPIError(err error) error {
	apiErr, ok := err.(*apiError)
	if !ok {
		return err
	}
	if apiErr.Status == http.StatusUnauthorized {
		return fmt.Errorf("%w: %s", backend.ErrUnauthorized, apiErr.Message)
	}
	return err
}

// tokenExpired inspects the access token's exp claim without verifying the
// signature; verification is the server's job. Unparseable tokens are left
// for the server to reject.
func tokenExpired(token string) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(expirySkew).After(claims.ExpiresAt.Time)
}
