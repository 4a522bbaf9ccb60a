package checkin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	interrors "github.com/halvax/qrcheckin/internal/errors"
)

// Submitter performs one check-in attempt with the given credential and
// returns the endpoint's textual response for classification. Any returned
// error is a hard failure from the orchestrator's point of view.
type Submitter interface {
	Submit(ctx context.Context, token string) (string, error)
}

// Client submits check-ins to the external endpoint over HTTP.
type Client struct {
	endpoint string
	http     *http.Client
}

var _ Submitter = (*Client)(nil)

func NewClient(endpoint string, timeout time.Duration) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("[checkin.NewClient] endpoint is required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) Submit(ctx context.Context, token string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, nil)
	if err != nil {
		return "", errors.Wrapf(interrors.ErrValidation, "build check-in request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(interrors.ErrTransport, "check-in request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrapf(interrors.ErrTransport, "read check-in response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Semantic rejections ("already checked in", "not in allowed time
		// window") arrive as 4xx with a message body; hand those to the
		// classifier instead of treating them as credential failures.
		if resp.StatusCode >= 400 && resp.StatusCode <= 499 {
			if message := parseMessage(body); message != "" {
				return message, nil
			}
		}
		return "", errors.Wrapf(interrors.ErrTransport, "check-in endpoint returned status %d", resp.StatusCode)
	}

	if message := parseMessage(body); message != "" {
		return message, nil
	}
	return string(body), nil
}

// parseMessage extracts the endpoint's {"message": "..."} payload; empty
// when the body is not of that shape.
func parseMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	return parsed.Message
}
