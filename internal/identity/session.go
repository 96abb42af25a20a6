package identity

import (
	"fmt"
	"strings"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/gofrs/uuid/v5"
)

func (p *Provider) issueSession(user User) (Session, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}
	issued := p.now().UTC()
	expires := issued.Add(p.ttl)
	claims := jwt.StandardClaims{
		Id:        jti.String(),
		Subject:   user.ID,
		Issuer:    p.issuer,
		IssuedAt:  issued.Unix(),
		ExpiresAt: expires.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return Session{}, fmt.Errorf("sign session: %w", err)
	}
	return Session{Token: token, ExpiresAt: expires, User: user}, nil
}

func (p *Provider) parse(token string) (*jwt.StandardClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errInvalidCredential
	}
	claims := &jwt.StandardClaims{}
	parser := &jwt.Parser{
		ValidMethods:         []string{jwt.SigningMethodHS256.Alg()},
		SkipClaimsValidation: true,
	}
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, errInvalidCredential
	}
	if claims.Issuer != p.issuer || claims.Subject == "" || claims.Id == "" {
		return nil, errInvalidCredential
	}
	if !p.now().Before(time.Unix(claims.ExpiresAt, 0)) {
		return nil, errSessionExpired
	}
	return claims, nil
}
