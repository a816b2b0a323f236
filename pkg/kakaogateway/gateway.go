package kakaogateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/Behyna/sms-services/creditgateway/pkg/httpclient"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

const (
	AuthEndpoint     = "/v1/auth/token"
	CampaignEndpoint = "/v1/campaigns"

	defaultTokenTTL = 5 * time.Minute
)

type Gateway interface {
	Authenticate(ctx context.Context) (string, error)
	SendCampaign(ctx context.Context, request SendCampaignRequest) (SendCampaignResponse, error)
}

type kakaoGateway struct {
	cfg    Config
	client httpclient.HTTPClient
	now    func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	flight    singleflight.Group
}

func NewGateway(cfg Config, client httpclient.HTTPClient) Gateway {
	return &kakaoGateway{cfg: cfg, client: client, now: time.Now}
}

// Authenticate returns a cached bearer token, exchanging client credentials
// for a new one when the cached token is within the refresh skew of expiry.
// Concurrent refreshes share a single request.
func (g *kakaoGateway) Authenticate(ctx context.Context) (string, error) {
	if token, ok := g.cachedToken(); ok {
		return token, nil
	}

	v, err, _ := g.flight.Do("token", func() (any, error) {
		if token, ok := g.cachedToken(); ok {
			return token, nil
		}
		return g.fetchToken(ctx)
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (g *kakaoGateway) SendCampaign(ctx context.Context, request SendCampaignRequest) (SendCampaignResponse, error) {
	token, err := g.Authenticate(ctx)
	if err != nil {
		return SendCampaignResponse{}, err
	}

	headers := map[string]string{
		"Authorization": "Bearer " + token,
		"X-Request-ID":  uuid.NewString(),
	}

	resp, err := g.client.PostJSON(ctx, g.cfg.BaseURL+CampaignEndpoint, request, headers)
	if err != nil {
		return SendCampaignResponse{}, mapTransportError(err)
	}

	if statusErr := mapStatusToError(resp.StatusCode); statusErr != nil {
		resp.Body.Close()
		if statusErr == ErrUnauthorized {
			g.invalidate(token)
		}
		return SendCampaignResponse{}, statusErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return SendCampaignResponse{}, rejection(resp)
	}

	var response SendCampaignResponse
	if err := httpclient.DecodeJSON(resp, &response); err != nil {
		return SendCampaignResponse{}, fmt.Errorf("%w: %v", ErrServerError, err)
	}

	if !response.Success {
		return SendCampaignResponse{}, &RejectedError{
			StatusCode: resp.StatusCode,
			Code:       response.Code,
			Message:    response.Message,
		}
	}

	return response, nil
}

func (g *kakaoGateway) cachedToken() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.token == "" || !g.now().Before(g.expiresAt.Add(-g.cfg.TokenRefreshSkew)) {
		return "", false
	}

	return g.token, true
}

func (g *kakaoGateway) invalidate(token string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token == token {
		g.token = ""
		g.expiresAt = time.Time{}
	}
}

func (g *kakaoGateway) fetchToken(ctx context.Context) (string, error) {
	request := TokenRequest{ClientID: g.cfg.ClientID, ClientSecret: g.cfg.ClientSecret}

	resp, err := g.client.PostJSON(ctx, g.cfg.BaseURL+AuthEndpoint, request, nil)
	if err != nil {
		return "", mapTransportError(err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		if statusErr := mapStatusToError(resp.StatusCode); statusErr != nil {
			return "", statusErr
		}
		return "", ErrUnauthorized
	}

	var response TokenResponse
	if err := httpclient.DecodeJSON(resp, &response); err != nil {
		return "", fmt.Errorf("%w: %v", ErrServerError, err)
	}

	if response.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrServerError)
	}

	now := g.now()
	expiresAt := tokenExpiry(response.AccessToken, response.ExpiresIn, now)

	g.mu.Lock()
	g.token = response.AccessToken
	g.expiresAt = expiresAt
	g.mu.Unlock()

	return response.AccessToken, nil
}

// tokenExpiry prefers the exp claim when the token is a JWT, then the
// expires_in hint, then a short default.
func tokenExpiry(token string, expiresIn int64, now time.Time) time.Time {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err == nil && claims.ExpiresAt != nil {
		return claims.ExpiresAt.Time
	}

	if expiresIn > 0 {
		return now.Add(time.Duration(expiresIn) * time.Second)
	}

	return now.Add(defaultTokenTTL)
}

func rejection(resp *http.Response) error {
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload errorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return &RejectedError{StatusCode: resp.StatusCode, Code: payload.Code, Message: payload.Message}
	}

	message := strings.TrimSpace(string(body))
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return &RejectedError{StatusCode: resp.StatusCode, Message: message}
}
