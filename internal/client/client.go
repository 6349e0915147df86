// Package client talks to the rollcall API over HTTP and satisfies
// viewmodel.Source, so the view model runs the same against a remote server
// as against a local roster.Adapter.
package client

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

	"rollcall-backend/internal/attendance"
	"rollcall-backend/internal/roster"
	"rollcall-backend/internal/whitelist"
)

// ErrNeedsAuthorization: 403。ログインは通っているがホワイトリストに無い
var ErrNeedsAuthorization = errors.New("account is not authorized to access attendance")

// ErrResultUnknown: サーバーは 2xx を返したが本文を読めなかった。書き込みは
// 反映済みの可能性があるので WRITE_FAILED とは区別する
var ErrResultUnknown = errors.New("server accepted the request but its response could not be read")

// errBadBody marks a 2xx response whose body did not decode.
var errBadBody = errors.New("undecodable response body")

const apiPrefix = "/api/v1"

type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// New builds a client; timeout bounds every request (zero means no limit).
func New(baseURL string, timeout time.Duration, token string) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
	}
}

// FetchMatrix: GET /api/v1/attendance
func (c *Client) FetchMatrix(ctx context.Context) (roster.Snapshot, error) {
	var res attendance.AttendanceResponse
	status, env, err := c.do(ctx, http.MethodGet, "/attendance", nil, &res)
	if err != nil {
		return roster.Snapshot{}, roster.ErrSourceUnavailable("attendance request failed", err)
	}
	switch {
	case status == http.StatusForbidden:
		return roster.Snapshot{}, ErrNeedsAuthorization
	case status != http.StatusOK:
		return roster.Snapshot{}, roster.ErrSourceUnavailable(env.describe(status), nil)
	}
	return attendance.ToSnapshot(res), nil
}

// UpdateForDate: POST /api/v1/attendance
func (c *Client) UpdateForDate(ctx context.Context, date string, records []roster.Record) (roster.UpdateResult, error) {
	req := attendance.UpdateRequest{Date: date, Attendance: make([]attendance.UpdateRecord, 0, len(records))}
	for _, r := range records {
		req.Attendance = append(req.Attendance, attendance.UpdateRecord{ID: r.ID, Name: r.Name, Present: r.Present})
	}

	var res attendance.UpdateResponse
	status, env, err := c.do(ctx, http.MethodPost, "/attendance", req, &res)
	if errors.Is(err, errBadBody) {
		return roster.UpdateResult{}, fmt.Errorf("%w: %v", ErrResultUnknown, err)
	}
	if err != nil {
		return roster.UpdateResult{}, roster.ErrWriteFailed("attendance request failed", err)
	}
	switch {
	case status == http.StatusForbidden:
		return roster.UpdateResult{}, ErrNeedsAuthorization
	case env.Error.Code == string(roster.CodeDateNotFound):
		return roster.UpdateResult{}, roster.ErrDateNotFound(date)
	case status != http.StatusOK:
		return roster.UpdateResult{}, roster.ErrWriteFailed(env.describe(status), nil)
	}
	return attendance.ToUpdateResult(res), nil
}

// CheckAuthorization: GET /api/v1/me/authorization
func (c *Client) CheckAuthorization(ctx context.Context) (bool, error) {
	var res whitelist.AuthorizationResponse
	status, env, err := c.do(ctx, http.MethodGet, "/me/authorization", nil, &res)
	if err != nil {
		return false, err
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("authorization check: %s", env.describe(status))
	}
	return res.Authorized, nil
}

type envelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (e envelope) describe(status int) string {
	if e.Error.Code == "" {
		return fmt.Sprintf("server returned %d", status)
	}
	return fmt.Sprintf("server returned %d %s: %s", status, e.Error.Code, e.Error.Message)
}

// do sends body as JSON and decodes a 2xx response into out. Non-2xx bodies
// are decoded as the error envelope instead. err is only set for transport
// and decode failures; a 2xx body that fails to decode wraps errBadBody.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (int, envelope, error) {
	var env envelope

	var rd io.Reader = http.NoBody
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return 0, env, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+apiPrefix+path, rd)
	if err != nil {
		return 0, env, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, env, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		_ = json.Unmarshal(raw, &env)
		return resp.StatusCode, env, nil
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, env, fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return resp.StatusCode, env, nil
}
