// invoker/http_client.go
package invoker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	cardly_errors "github.com/cardlyhq/cardly/errors"
	"github.com/cardlyhq/cardly/model"
)

// DefaultTimeout bounds outbound calls when the caller supplies none.
const DefaultTimeout = 10 * time.Second

// EnterpriseClient talks to the enterprise API collaborator:
// bearer-token-authenticated JSON requests with cooperative
// cancellation. Non-2xx responses are classified into the typed error
// taxonomy; a body carrying subscriptionRequired becomes a
// subscription_required error with upgrade metadata.
type EnterpriseClient struct {
	baseURL    string
	token      string
	timeout    time.Duration
	httpClient *http.Client
}

// NewEnterpriseClient creates a client for the given base URL. A zero
// timeout falls back to DefaultTimeout.
func NewEnterpriseClient(baseURL, token string, timeout time.Duration) *EnterpriseClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &EnterpriseClient{
		baseURL:    baseURL,
		token:      token,
		timeout:    timeout,
		httpClient: &http.Client{},
	}
}

// errorBody is the collaborator's error response shape.
type errorBody struct {
	Error                string `json:"error"`
	Code                 string `json:"code,omitempty"`
	SubscriptionRequired bool   `json:"subscriptionRequired,omitempty"`
	RequiredLevel        string `json:"requiredLevel,omitempty"`
}

// Do performs one JSON request and decodes a 2xx response into out.
// Transport failures and deadline hits come back as network/timeout
// errors; the cache layer never retries them, retry policy stays with
// the caller.
func (c *EnterpriseClient) Do(ctx context.Context, method, path string, body, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return cardly_errors.NewValidation(fmt.Sprintf("unencodable request body: %v", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return cardly_errors.NewValidation(err.Error())
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cardly_errors.Translate(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.classify(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return cardly_errors.NewServer("undecodable response body", err)
	}
	return nil
}

// Get performs a GET request.
func (c *EnterpriseClient) Get(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

// Post performs a POST request.
func (c *EnterpriseClient) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *EnterpriseClient) classify(resp *http.Response) error {
	var body errorBody
	_ = json.NewDecoder(resp.Body).Decode(&body)

	message := body.Error
	if message == "" {
		message = fmt.Sprintf("request failed with status %d", resp.StatusCode)
	}

	if body.SubscriptionRequired {
		appErr := &cardly_errors.AppError{
			Type:    cardly_errors.TypeSubscriptionRequired,
			Code:    model.DecisionCode(body.Code),
			Message: message,
		}
		if body.RequiredLevel != "" {
			appErr.RequiredLevel = model.ParseSubscriptionLevel(body.RequiredLevel)
		}
		return appErr
	}
	return cardly_errors.FromStatusCode(resp.StatusCode, message)
}
