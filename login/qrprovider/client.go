// Package qrprovider adapts the third-party QR login handshake to the
// login.Provider contract. Everything about the provider's wire shape is
// contained here; the rest of the system only sees the normalized signal
// vocabulary.
package qrprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"

	interrors "github.com/halvax/qrcheckin/internal/errors"
	"github.com/halvax/qrcheckin/login"
)

const (
	requestPath   = "/passport/qr/request"
	challengePath = "/passport/qr/image"
	pollPath      = "/passport/qr/poll"
	exchangePath  = "/passport/token"
)

// Provider-side status vocabulary. Anything else maps to an unrecognized
// signal and is the caller's problem to classify.
const (
	statusWaiting   = "WAITING"
	statusScanned   = "SCANNED"
	statusConfirmed = "CONFIRMED"
	statusExpired   = "EXPIRED"
)

// Config carries the provider endpoint settings. Nothing here is a code
// constant: deployments pass it in at construction.
type Config struct {
	BaseURL   string
	ClientID  string
	UserAgent string
	Timeout   time.Duration
}

// Client implements login.Provider over the provider's HTTP endpoints.
type Client struct {
	config Config
	http   *http.Client
}

var _ login.Provider = (*Client)(nil)

func New(config Config) (*Client, error) {
	if config.BaseURL == "" {
		return nil, errors.New("[qrprovider.New] base URL is required")
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &Client{
		config: config,
		http:   &http.Client{Timeout: config.Timeout},
	}, nil
}

func (c *Client) RequestLogin(ctx context.Context) (string, error) {
	body, err := c.do(ctx, http.MethodPost, requestPath, nil, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		CorrelationID string `json:"correlationId"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.CorrelationID == "" {
		return "", errors.Wrap(interrors.ErrProtocol, "[RequestLogin] missing correlation id")
	}
	return resp.CorrelationID, nil
}

func (c *Client) RenderChallenge(ctx context.Context, correlationID string) ([]byte, error) {
	query := url.Values{"correlationId": {correlationID}}
	return c.do(ctx, http.MethodGet, challengePath, query, nil)
}

func (c *Client) PollOnce(ctx context.Context, correlationID string) (login.Signal, error) {
	query := url.Values{"correlationId": {correlationID}}
	body, err := c.do(ctx, http.MethodGet, pollPath, query, nil)
	if err != nil {
		return login.Signal{}, err
	}

	var resp struct {
		Status string `json:"status"`
		Code   string `json:"code,omitempty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return login.Signal{}, errors.Wrap(interrors.ErrProtocol, "[PollOnce] malformed poll response")
	}

	switch resp.Status {
	case statusWaiting:
		return login.Signal{Kind: login.SignalStillWaiting}, nil
	case statusScanned:
		return login.Signal{Kind: login.SignalScannedPendingConfirm}, nil
	case statusConfirmed:
		if resp.Code == "" {
			return login.Signal{}, errors.Wrap(interrors.ErrProtocol, "[PollOnce] confirmed without authorization code")
		}
		return login.Signal{Kind: login.SignalConfirmed, AuthorizationCode: resp.Code}, nil
	case statusExpired:
		return login.Signal{Kind: login.SignalChallengeExpired}, nil
	default:
		return login.Signal{Kind: login.SignalUnrecognized, RawCode: resp.Status}, nil
	}
}

func (c *Client) ExchangeCode(ctx context.Context, code string) (login.Credential, error) {
	payload, err := json.Marshal(map[string]string{"code": code})
	if err != nil {
		return login.Credential{}, errors.Wrap(err, "[ExchangeCode] marshal request")
	}

	body, err := c.do(ctx, http.MethodPost, exchangePath, nil, payload)
	if err != nil {
		return login.Credential{}, err
	}

	var resp struct {
		Token     string `json:"token"`
		ExpiresAt int64  `json:"expiresAt,omitempty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return login.Credential{}, errors.Wrap(interrors.ErrProtocol, "[ExchangeCode] malformed exchange response")
	}
	if resp.Token == "" {
		return login.Credential{}, errors.Wrap(interrors.ErrProtocol, "[ExchangeCode] missing token")
	}
	return login.Credential{Token: resp.Token, ExpiresAt: resp.ExpiresAt}, nil
}

// do performs one provider request. Unreachable endpoints and non-2xx
// statuses surface as transport errors; response bodies come back raw for
// the caller to interpret.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload []byte) ([]byte, error) {
	endpoint := c.config.BaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, errors.Wrapf(interrors.ErrValidation, "build request for %s: %v", path, err)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if c.config.ClientID != "" {
		req.Header.Set("X-Client-Id", c.config.ClientID)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(interrors.ErrTransport, "%s: %v", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(interrors.ErrTransport, "%s returned status %d", path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(interrors.ErrTransport, "read response from %s: %v", path, err)
	}
	return body, nil
}
