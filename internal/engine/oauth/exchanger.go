package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"notebridge/internal/platform/config"
)

var (
	// ErrExchangeFailed covers every non-success on the code exchange.
	// Authorization codes are single-use, so this is never retried.
	ErrExchangeFailed = errors.New("authorization code exchange failed")

	// ErrRefreshFailed means the refresh token itself was invalidated
	// upstream. Terminal for the session: the user must re-authenticate.
	ErrRefreshFailed = errors.New("refresh token rejected by provider")
)

// TokenGrant is the provider's response to a successful code exchange.
type TokenGrant struct {
	AccessToken   string `json:"access_token"`
	RefreshToken  string `json:"refresh_token"`
	ExternalID    string `json:"bot_id"`
	WorkspaceID   string `json:"workspace_id"`
	WorkspaceName string `json:"workspace_name"`
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Exchanger talks to the workspace provider's token endpoint. The endpoint
// wants Basic auth with the integration credentials and a JSON body.
type Exchanger struct {
	config config.OAuthConfig
	client *http.Client
}

func NewExchanger(cfg config.OAuthConfig) *Exchanger {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Exchanger{
		config: cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (e *Exchanger) ExchangeCode(ctx context.Context, code string) (*TokenGrant, error) {
	payload := map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": e.config.RedirectURI,
	}

	var grant TokenGrant
	if err := e.post(ctx, payload, &grant, ErrExchangeFailed); err != nil {
		return nil, err
	}
	if grant.AccessToken == "" || grant.ExternalID == "" {
		return nil, fmt.Errorf("%w: provider response missing token or identity", ErrExchangeFailed)
	}
	return &grant, nil
}

func (e *Exchanger) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	payload := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
	}

	var pair TokenPair
	if err := e.post(ctx, payload, &pair, ErrRefreshFailed); err != nil {
		return nil, err
	}
	if pair.AccessToken == "" {
		return nil, fmt.Errorf("%w: provider response missing access token", ErrRefreshFailed)
	}
	return &pair, nil
}

func (e *Exchanger) post(ctx context.Context, payload map[string]string, out interface{}, failure error) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: %v", failure, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.config.TokenURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", failure, err)
	}
	req.SetBasicAuth(e.config.ClientID, e.config.ClientSecret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", failure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", failure, providerError(resp))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", failure, err)
	}
	return nil
}

// providerError surfaces the provider's own error string verbatim.
func providerError(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		return fmt.Sprintf("%s (%d)", body.Error, resp.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d", resp.StatusCode)
}
