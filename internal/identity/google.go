package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	googleAuthURL     = "https://accounts.google.com/o/oauth2/auth"
	googleTokenURL    = "https://oauth2.googleapis.com/token"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
)

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	HTTPClient   *http.Client
}

type googleClient struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

type googleUserInfo struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (p *Provider) EnableGoogle(cfg GoogleConfig) error {
	if strings.TrimSpace(cfg.ClientID) == "" {
		return fmt.Errorf("google client id is required")
	}
	if strings.TrimSpace(cfg.RedirectURL) == "" {
		return fmt.Errorf("google redirect url is required")
	}
	authURL := defaultIfEmpty(cfg.AuthURL, googleAuthURL)
	tokenURL := defaultIfEmpty(cfg.TokenURL, googleTokenURL)
	client := &googleClient{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL},
		},
		userInfoURL: defaultIfEmpty(cfg.UserInfoURL, googleUserInfoURL),
		httpClient:  cfg.HTTPClient,
	}
	p.mu.Lock()
	p.google = client
	p.mu.Unlock()
	return nil
}

func (p *Provider) GoogleEnabled() bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.google != nil
}

func (p *Provider) GoogleAuthURL(state string) (string, error) {
	client := p.googleClient()
	if client == nil {
		return "", errGoogleDisabled
	}
	return client.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline), nil
}

// GoogleExchange trades the callback code for a session, creating the account on first sign-in.
func (p *Provider) GoogleExchange(ctx context.Context, code string) (Session, error) {
	client := p.googleClient()
	if client == nil {
		return Session{}, errGoogleDisabled
	}
	if client.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, client.httpClient)
	}
	token, err := client.oauth.Exchange(ctx, code)
	if err != nil {
		zap.L().Warn("google exchange failed", zap.Error(err))
		return Session{}, errInvalidCredential
	}
	info, err := client.userInfo(ctx, token)
	if err != nil {
		return Session{}, err
	}
	if !info.EmailVerified {
		zap.L().Warn("google email not verified", zap.String("email", normalizeEmail(info.Email)))
		return Session{}, errInvalidCredential
	}
	email := normalizeEmail(info.Email)
	if !emailPattern.MatchString(email) {
		return Session{}, newError(CodeInvalidEmail, "email", "Invalid email address")
	}

	p.mu.RLock()
	acct, ok := p.byEmail[email]
	p.mu.RUnlock()
	if ok {
		return p.issueSession(acct.user)
	}

	name := strings.TrimSpace(info.Name)
	if name == "" {
		name = email
	}
	acct, err = p.createAccount(name, email, ProviderGoogle, nil)
	if err != nil {
		return Session{}, err
	}
	if err := p.runHooks(ctx, acct); err != nil {
		return Session{}, err
	}
	zap.L().Info("account created", zap.String("user_id", acct.user.ID), zap.String("provider", ProviderGoogle))
	return p.issueSession(acct.user)
}

func (p *Provider) googleClient() *googleClient {
	if p == nil {
		return nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.google
}

func (c *googleClient) userInfo(ctx context.Context, token *oauth2.Token) (googleUserInfo, error) {
	httpClient := c.oauth.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userInfoURL, nil)
	if err != nil {
		return googleUserInfo{}, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return googleUserInfo{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return googleUserInfo{}, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}
	var info googleUserInfo
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&info); err != nil {
		return googleUserInfo{}, fmt.Errorf("decode userinfo: %w", err)
	}
	return info, nil
}

func defaultIfEmpty(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
