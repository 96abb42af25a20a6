package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"finance_tracker/internal/ledger"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const defaultResetCodeTTL = 10 * time.Minute

type resetState struct {
	secret string
	issued time.Time
}

type Notifier interface {
	SendResetCode(ctx context.Context, email string, code string) error
}

type LogNotifier struct{}

func (LogNotifier) SendResetCode(_ context.Context, email string, code string) error {
	zap.L().Debug("password reset code issued", zap.String("email", email), zap.String("code", code))
	return nil
}

// RequestPasswordReset issues a single-use six digit code valid for the reset window.
func (p *Provider) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return newError(CodeInvalidEmail, "email", "Invalid email address")
	}

	p.mu.RLock()
	_, ok := p.byEmail[email]
	p.mu.RUnlock()
	if !ok {
		return errUserNotFound
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      p.issuer,
		AccountName: email,
		Period:      p.resetPeriod(),
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return fmt.Errorf("generate reset secret: %w", err)
	}
	now := p.now()
	code, err := totp.GenerateCodeCustom(key.Secret(), now, p.resetOpts())
	if err != nil {
		return fmt.Errorf("generate reset code: %w", err)
	}

	p.mu.Lock()
	p.resets[email] = resetState{secret: key.Secret(), issued: now}
	p.mu.Unlock()

	if err := p.notifier.SendResetCode(ctx, email, code); err != nil {
		p.mu.Lock()
		delete(p.resets, email)
		p.mu.Unlock()
		return fmt.Errorf("deliver reset code: %w", err)
	}
	return nil
}

func (p *Provider) ConfirmPasswordReset(ctx context.Context, email, code, newPassword string) error {
	email = normalizeEmail(email)

	var errs ledger.ValidationErrors
	if code == "" {
		errs.Add("code", "Reset code is required")
	}
	switch {
	case newPassword == "":
		errs.Add("password", "Password is required")
	case len(newPassword) < MinPasswordLength:
		errs.Add("password", "Password must be at least 8 characters long")
	}
	if err := errs.Err(); err != nil {
		return err
	}

	now := p.now()
	p.mu.Lock()
	state, ok := p.resets[email]
	if ok && now.Sub(state.issued) >= p.resetTTL {
		delete(p.resets, email)
		ok = false
	}
	p.mu.Unlock()
	if !ok {
		return errInvalidResetCode
	}

	valid, err := totp.ValidateCustom(code, state.secret, state.issued, p.resetOpts())
	if err != nil || !valid {
		return errInvalidResetCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), p.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return newError(CodeWeakPassword, "password", "Password is too weak")
		}
		return fmt.Errorf("hash password: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	acct, ok := p.byEmail[email]
	if !ok {
		return errUserNotFound
	}
	delete(p.resets, email)
	acct.hash = hash
	zap.L().Info("password reset", zap.String("user_id", acct.user.ID))
	return nil
}

func (p *Provider) resetPeriod() uint {
	seconds := uint(p.resetTTL / time.Second)
	if seconds == 0 {
		seconds = 1
	}
	return seconds
}

func (p *Provider) resetOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    p.resetPeriod(),
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}
