package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"finance_tracker/internal/ledger"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	MinPasswordLength = 8

	ProviderPassword = "password"
	ProviderGoogle   = "google"

	defaultSessionTTL = 24 * time.Hour
	defaultIssuer     = "finance-tracker"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Provider  string    `json:"provider"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

type SignUpHook func(ctx context.Context, user User) error

type Config struct {
	Secret       []byte
	Issuer       string
	SessionTTL   time.Duration
	ResetCodeTTL time.Duration
	BcryptCost   int
	Notifier     Notifier
	Now          func() time.Time
}

type account struct {
	user User
	hash []byte
}

type Provider struct {
	mu       sync.RWMutex
	byEmail  map[string]*account
	byID     map[string]*account
	revoked  map[string]time.Time
	resets   map[string]resetState
	hooks    []SignUpHook
	google   *googleClient
	secret   []byte
	issuer   string
	ttl      time.Duration
	resetTTL time.Duration
	cost     int
	notifier Notifier
	now      func() time.Time
}

func NewProvider(cfg Config) (*Provider, error) {
	if len(cfg.Secret) == 0 {
		return nil, errors.New("session secret is required")
	}
	p := &Provider{
		byEmail:  make(map[string]*account),
		byID:     make(map[string]*account),
		revoked:  make(map[string]time.Time),
		resets:   make(map[string]resetState),
		secret:   append([]byte(nil), cfg.Secret...),
		issuer:   cfg.Issuer,
		ttl:      cfg.SessionTTL,
		resetTTL: cfg.ResetCodeTTL,
		cost:     cfg.BcryptCost,
		notifier: cfg.Notifier,
		now:      cfg.Now,
	}
	if p.issuer == "" {
		p.issuer = defaultIssuer
	}
	if p.ttl <= 0 {
		p.ttl = defaultSessionTTL
	}
	if p.resetTTL <= 0 {
		p.resetTTL = defaultResetCodeTTL
	}
	if p.cost == 0 {
		p.cost = bcrypt.DefaultCost
	}
	if p.notifier == nil {
		p.notifier = LogNotifier{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p, nil
}

// OnSignUp registers a hook that runs after an account is created. A failing hook rolls the
// account back.
func (p *Provider) OnSignUp(hook SignUpHook) {
	if p == nil || hook == nil {
		return
	}
	p.mu.Lock()
	p.hooks = append(p.hooks, hook)
	p.mu.Unlock()
}

func (p *Provider) SignUp(ctx context.Context, name, email, password string) (Session, error) {
	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	var errs ledger.ValidationErrors
	if name == "" {
		errs.Add("name", "Full name is required")
	}
	validateEmail(&errs, email)
	switch {
	case password == "":
		errs.Add("password", "Password is required")
	case len(password) < MinPasswordLength:
		errs.Add("password", "Password must be at least 8 characters long")
	}
	if err := errs.Err(); err != nil {
		return Session{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return Session{}, newError(CodeWeakPassword, "password", "Password is too weak")
		}
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	acct, err := p.createAccount(name, email, ProviderPassword, hash)
	if err != nil {
		return Session{}, err
	}
	if err := p.runHooks(ctx, acct); err != nil {
		return Session{}, err
	}
	zap.L().Info("account created", zap.String("user_id", acct.user.ID), zap.String("provider", ProviderPassword))
	return p.issueSession(acct.user)
}

func (p *Provider) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = normalizeEmail(email)

	var errs ledger.ValidationErrors
	validateEmail(&errs, email)
	if password == "" {
		errs.Add("password", "Password is required")
	}
	if err := errs.Err(); err != nil {
		return Session{}, err
	}

	p.mu.RLock()
	acct, ok := p.byEmail[email]
	p.mu.RUnlock()
	if !ok {
		return Session{}, errUserNotFound
	}
	if len(acct.hash) == 0 {
		return Session{}, errInvalidCredential
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return Session{}, errWrongPassword
	}
	return p.issueSession(acct.user)
}

// SignOut revokes the session token until it would have expired on its own.
func (p *Provider) SignOut(token string) error {
	claims, err := p.parse(token)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.revoked[claims.Id] = time.Unix(claims.ExpiresAt, 0)
	p.pruneRevokedLocked()
	p.mu.Unlock()
	return nil
}

func (p *Provider) Authenticate(token string) (User, error) {
	if p == nil {
		return User{}, errInvalidCredential
	}
	claims, err := p.parse(token)
	if err != nil {
		return User{}, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if _, revoked := p.revoked[claims.Id]; revoked {
		return User{}, errSessionExpired
	}
	acct, ok := p.byID[claims.Subject]
	if !ok {
		return User{}, errUserNotFound
	}
	return acct.user, nil
}

func (p *Provider) CurrentUser(token string) (User, bool) {
	user, err := p.Authenticate(token)
	return user, err == nil
}

func (p *Provider) createAccount(name, email, provider string, hash []byte) (*account, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generate user id: %w", err)
	}
	acct := &account{
		user: User{
			ID:        id.String(),
			Name:      name,
			Email:     email,
			Provider:  provider,
			CreatedAt: p.now().UTC(),
		},
		hash: hash,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.byEmail[email]; exists {
		return nil, errEmailInUse
	}
	p.byEmail[email] = acct
	p.byID[acct.user.ID] = acct
	return acct, nil
}

func (p *Provider) runHooks(ctx context.Context, acct *account) error {
	p.mu.RLock()
	hooks := append([]SignUpHook(nil), p.hooks...)
	p.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, acct.user); err != nil {
			p.mu.Lock()
			delete(p.byEmail, acct.user.Email)
			delete(p.byID, acct.user.ID)
			p.mu.Unlock()
			zap.L().Error("sign up hook failed", zap.String("user_id", acct.user.ID), zap.Error(err))
			return fmt.Errorf("initialize account: %w", err)
		}
	}
	return nil
}

func (p *Provider) pruneRevokedLocked() {
	now := p.now()
	for jti, expires := range p.revoked {
		if !now.Before(expires) {
			delete(p.revoked, jti)
		}
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(errs *ledger.ValidationErrors, email string) {
	switch {
	case email == "":
		errs.Add("email", "Email is required")
	case !emailPattern.MatchString(email):
		errs.Add("email", "Please enter a valid email address")
	}
}
