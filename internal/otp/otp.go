// Package otp invokes the send-one-time-code function.
package otp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrSendFailed = errors.New("failed to send otp")

// Result is the function's reply. DemoCode and ExpiresAt are only filled
// outside production, when the function hands the code back to the caller.
type Result struct {
	Success   bool       `json:"success"`
	DemoCode  string     `json:"demo_otp,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Message   string     `json:"message,omitempty"`
	Error     string     `json:"error,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, phone string) (*Result, error)
}

type FunctionClient struct {
	url    string
	key    string
	client *http.Client
}

func NewFunctionClient(url, key string) *FunctionClient {
	return &FunctionClient{url: url, key: key, client: &http.Client{Timeout: 15 * time.Second}}
}

func (c *FunctionClient) Send(ctx context.Context, phone string) (*Result, error) {
	body, err := json.Marshal(map[string]string{"phone": phone})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return nil, err
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode send-otp status=%d: %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !res.Success {
		msg := res.Error
		if msg == "" {
			msg = res.Message
		}
		return &res, fmt.Errorf("%w: status=%d %s", ErrSendFailed, resp.StatusCode, msg)
	}
	return &res, nil
}

// Demo returns a fixed code without contacting any service.
type Demo struct {
	Code string
}

func (d Demo) Send(ctx context.Context, phone string) (*Result, error) {
	return &Result{Success: true, DemoCode: d.Code, Message: "OTP sent"}, nil
}
