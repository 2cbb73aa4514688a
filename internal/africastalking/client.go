// Package africastalking is a thin client for the Africa's Talking messaging
// and voice APIs.
package africastalking

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cjdreamy/M-kumbusha/internal/logger"
)

const (
	smsSuccessStatus  = "Success"
	callQueuedStatus  = "Queued"
	defaultCallFailed = "Call failed"
	maxBodyBytes      = 1 << 20
)

// Options configures a Client
type Options struct {
	Username string
	APIKey   string
	SMSURL   string
	VoiceURL string
	CallerID string
}

// Client calls the provider over HTTP, authenticating with the apiKey header
type Client struct {
	httpClient *http.Client
	opts       Options
}

func NewClient(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{httpClient: httpClient, opts: opts}
}

// SMSRecipient is the per-number result of a messaging request
type SMSRecipient struct {
	Number     string `json:"number"`
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	MessageID  string `json:"messageId"`
	Cost       string `json:"cost"`
}

// SMSResponse is the decoded messaging response
type SMSResponse struct {
	SMSMessageData struct {
		Message    string         `json:"Message"`
		Recipients []SMSRecipient `json:"Recipients"`
	} `json:"SMSMessageData"`

	Raw json.RawMessage `json:"-"`
}

// Outcome classifies the response: sent only when the first recipient reports Success.
// On failure the recipient status is returned as the error detail.
func (r *SMSResponse) Outcome() (sent bool, detail string) {
	if len(r.SMSMessageData.Recipients) == 0 {
		if r.SMSMessageData.Message != "" {
			return false, r.SMSMessageData.Message
		}
		return false, "no recipients in provider response"
	}
	status := r.SMSMessageData.Recipients[0].Status
	if status == smsSuccessStatus {
		return true, ""
	}
	return false, status
}

// CallEntry is the per-number result of a call request
type CallEntry struct {
	PhoneNumber string `json:"phoneNumber"`
	Status      string `json:"status"`
	SessionID   string `json:"sessionId"`
}

// CallResponse is the decoded voice response
type CallResponse struct {
	Entries      []CallEntry `json:"entries"`
	ErrorMessage string      `json:"errorMessage"`

	Raw json.RawMessage `json:"-"`
}

// Outcome classifies the response: sent only when the first call leg is Queued.
func (r *CallResponse) Outcome() (sent bool, detail string) {
	if len(r.Entries) > 0 && r.Entries[0].Status == callQueuedStatus {
		return true, ""
	}
	if r.ErrorMessage != "" && r.ErrorMessage != "None" {
		return false, r.ErrorMessage
	}
	return false, defaultCallFailed
}

// SendSMS sends one text message
func (c *Client) SendSMS(ctx context.Context, to, message string) (*SMSResponse, error) {
	form := url.Values{}
	form.Set("username", c.opts.Username)
	form.Set("to", to)
	form.Set("message", message)

	var resp SMSResponse
	raw, err := c.post(ctx, c.opts.SMSURL, form, &resp)
	if err != nil {
		return nil, err
	}
	resp.Raw = raw
	return &resp, nil
}

// Call places one outbound voice call from the configured caller number
func (c *Client) Call(ctx context.Context, to string) (*CallResponse, error) {
	form := url.Values{}
	form.Set("username", c.opts.Username)
	form.Set("to", to)
	form.Set("from", c.opts.CallerID)

	var resp CallResponse
	raw, err := c.post(ctx, c.opts.VoiceURL, form, &resp)
	if err != nil {
		return nil, err
	}
	resp.Raw = raw
	return &resp, nil
}

func (c *Client) post(ctx context.Context, endpoint string, form url.Values, out interface{}) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apiKey", c.opts.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", endpoint, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logger.Log.Warnf("Error closing provider response body: %v", cerr)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read provider response: %w", err)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return nil, fmt.Errorf("provider returned %s with undecodable body %q: %w", resp.Status, truncate(string(body), 200), err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		logger.Log.Warnf("Provider %s answered %s: %s", endpoint, resp.Status, truncate(string(body), 200))
	}
	return json.RawMessage(body), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
