// Package remote talks to a running `parley serve` so sessions can score and store remotely.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"github.com/rbright/parley/internal/interview"
	"github.com/rbright/parley/internal/scoring"
	"github.com/rbright/parley/internal/version"
)

const defaultTimeout = 2 * time.Minute

// Client implements the scoring service and the interview store over the HTTP API.
type Client struct {
	http *resty.Client
}

// New builds a client for baseURL (for example http://127.0.0.1:8787).
func New(baseURL string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("remote api url is empty")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http: resty.New().
			SetBaseURL(baseURL).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", version.UserAgent()).
			SetTimeout(timeout),
	}, nil
}

// Evaluate posts a transcript to /api/evaluate.
func (c *Client) Evaluate(ctx context.Context, transcript string, interviewType string) (interview.Evaluation, error) {
	var evaluation interview.Evaluation
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"transcript": transcript, "interviewType": interviewType}).
		SetResult(&evaluation).
		Post("/api/evaluate")
	if err != nil {
		return interview.Evaluation{}, &interview.ServiceError{Op: "evaluate", Err: err}
	}
	if resp.IsError() {
		cause := responseError(resp)
		if resp.StatusCode() == http.StatusBadRequest && strings.Contains(cause.Error(), "interview type") {
			cause = fmt.Errorf("%w %q", interview.ErrUnknownInterviewType, interviewType)
		}
		return interview.Evaluation{}, &interview.ServiceError{Op: "evaluate", Err: cause}
	}
	return evaluation, nil
}

// Answer posts a follow-up question to /api/debug.
func (c *Client) Answer(ctx context.Context, q scoring.Question) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(q).
		Post("/api/debug")
	if err != nil {
		return "", &interview.ServiceError{Op: "answer", Err: err}
	}
	if resp.IsError() {
		return "", &interview.ServiceError{Op: "answer", Err: responseError(resp)}
	}
	answer := gjson.GetBytes(resp.Body(), "answer").String()
	if strings.TrimSpace(answer) == "" {
		return "", &interview.ServiceError{Op: "answer", Err: errors.New("empty answer")}
	}
	return answer, nil
}

// Create posts a draft to /api/interviews.
func (c *Client) Create(ctx context.Context, draft interview.Draft) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(draft).
		Post("/api/interviews")
	if err != nil {
		return "", &interview.StoreError{Op: "create", Err: err}
	}
	if resp.IsError() {
		cause := responseError(resp)
		if resp.StatusCode() == http.StatusBadRequest {
			return "", fmt.Errorf("%w: %s", interview.ErrIntegrity, cause.Error())
		}
		return "", &interview.StoreError{Op: "create", Err: cause}
	}
	id := gjson.GetBytes(resp.Body(), "id").String()
	if id == "" {
		return "", &interview.StoreError{Op: "create", Err: errors.New("response has no id")}
	}
	return id, nil
}

// Read fetches one interview from /api/interviews.
func (c *Client) Read(ctx context.Context, id string) (interview.Record, error) {
	var record interview.Record
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("id", id).
		SetResult(&record).
		Get("/api/interviews")
	if err != nil {
		return interview.Record{}, &interview.StoreError{Op: "read", Err: err}
	}
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return interview.Record{}, fmt.Errorf("%w: %s", interview.ErrNotFound, id)
	case resp.IsError():
		return interview.Record{}, &interview.StoreError{Op: "read", Err: responseError(resp)}
	}
	if record.ID == "" {
		record.ID = id
	}
	return record, nil
}

// Ping checks the server readiness probe.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.R().SetContext(ctx).Get("/readyz")
	if err != nil {
		return &interview.StoreError{Op: "ping", Err: err}
	}
	if resp.IsError() {
		return &interview.StoreError{Op: "ping", Err: fmt.Errorf("readiness returned %d", resp.StatusCode())}
	}
	return nil
}

func (c *Client) Close() error { return nil }

func responseError(resp *resty.Response) error {
	message := gjson.GetBytes(resp.Body(), "error").String()
	if message == "" {
		message = strings.TrimSpace(resp.String())
	}
	return fmt.Errorf("%s %s returned %d: %s", resp.Request.Method, resp.Request.URL, resp.StatusCode(), message)
}
