package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/slatesync/slatesync/internal/logging"
	"github.com/slatesync/slatesync/pkg/retry"
)

const (
	deviceTokenPath = "/token/json/2/device/new"
	userTokenPath   = "/token/json/2/user/new"

	deviceDesc = "desktop-windows"
)

// RegisterDevice exchanges a one-time pairing code for a long-lived
// device token. The code comes from the account's device registration
// page and is valid for a few minutes. The returned token is stored on
// the client and should be persisted by the caller; it is the only way
// to mint session tokens later.
func (c *Client) RegisterDevice(ctx context.Context, code string) (string, error) {
	body, err := json.Marshal(struct {
		Code       string `json:"code"`
		DeviceDesc string `json:"deviceDesc"`
		DeviceID   string `json:"deviceID"`
	}{code, deviceDesc, uuid.NewString()})
	if err != nil {
		return "", err
	}

	token, err := c.tokenRequest(ctx, deviceTokenPath, body, "")
	if err != nil {
		return "", fmt.Errorf("register device: %w", err)
	}

	c.mu.Lock()
	c.deviceToken = token
	c.mu.Unlock()

	logging.Info("device registered")
	return token, nil
}

// RefreshToken trades the device token for a fresh session token and
// installs it as the bearer token for subsequent requests.
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	deviceToken := c.deviceToken
	c.mu.RUnlock()
	if deviceToken == "" {
		return "", fmt.Errorf("refresh token: no device token, register first")
	}

	token, err := c.tokenRequest(ctx, userTokenPath, nil, deviceToken)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	c.SetAuthToken(token)
	logging.Debug("session token refreshed")
	return token, nil
}

// DeviceToken returns the stored device token.
func (c *Client) DeviceToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.deviceToken
}

// tokenRequest POSTs to the auth service and returns the plain-text
// token body.
func (c *Client) tokenRequest(ctx context.Context, path string, body []byte, bearer string) (string, error) {
	return retry.DoWithResult(ctx, c.retryCfg, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+path, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if bearer != "" {
			req.Header.Set("Authorization", "Bearer "+bearer)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", retry.Retryable(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", statusError("token request", resp)
		}

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
		if err != nil {
			return "", retry.Retryable(err)
		}
		token := strings.TrimSpace(string(raw))
		if token == "" {
			return "", fmt.Errorf("token request: empty response")
		}
		return token, nil
	})
}

// TokenExpired reports whether a JWT's exp claim falls within margin of
// now. The signature is not verified; only the remote can do that, and
// the claim is read purely to refresh proactively instead of bouncing
// off a 401. Unparseable tokens count as expired.
func TokenExpired(token string, margin time.Duration) bool {
	if token == "" {
		return true
	}
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		logging.Debug("token parse failed, treating as expired", zap.Error(err))
		return true
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return true
	}
	return time.Now().Add(margin).After(exp.Time)
}
