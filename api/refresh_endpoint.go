package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/jrsteele09/go-lms-client/refresh"
)

var _ refresh.Endpoint = (*RefreshEndpoint)(nil)

// RefreshEndpoint calls POST /token/refresh/ on a bare HTTP client. It must
// not go through the gateway: the gateway invokes the refresh coordinator on
// 401, and routing the refresh call back through it would recurse.
type RefreshEndpoint struct {
	baseURL string
	client  *http.Client
}

// NewRefreshEndpoint creates a refresh endpoint for the API at baseURL.
// A nil client gets a default with the standard request timeout.
func NewRefreshEndpoint(baseURL string, client *http.Client) *RefreshEndpoint {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &RefreshEndpoint{baseURL: baseURL, client: client}
}

// Refresh exchanges the refresh token for a new access token.
func (e *RefreshEndpoint) Refresh(ctx context.Context, refreshToken string) (string, error) {
	payload, err := json.Marshal(map[string]string{"refresh": refreshToken})
	if err != nil {
		return "", errors.Wrap(err, "[RefreshEndpoint.Refresh] marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/token/refresh/", bytes.NewReader(payload))
	if err != nil {
		return "", errors.Wrap(err, "[RefreshEndpoint.Refresh] build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "[RefreshEndpoint.Refresh] round trip")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.Wrap(err, "[RefreshEndpoint.Refresh] read body")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("[RefreshEndpoint.Refresh] refresh rejected (HTTP %d)", resp.StatusCode)
	}

	var result struct {
		Access string `json:"access"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", errors.Wrap(err, "[RefreshEndpoint.Refresh] decode response")
	}
	if result.Access == "" {
		return "", errors.New("[RefreshEndpoint.Refresh] empty access token in response")
	}
	return result.Access, nil
}
