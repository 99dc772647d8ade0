// Package auth verifies bearer tokens issued by the identity provider.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/julianstephens/keeprun/internal/errors"
	"github.com/julianstephens/keeprun/internal/utils"
)

// Identity is the authenticated caller.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type Options struct {
	Issuer   string
	Audience string
	Clock    utils.Clock
	// Leeway tolerates clock skew on exp/nbf/iat.
	Leeway time.Duration
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	opts   Options
}

func NewVerifier(secret string, opts Options) (*Verifier, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, apperrors.New(apperrors.KindValidation, "jwt secret is required")
	}
	if opts.Clock == nil {
		opts.Clock = utils.SystemClock{}
	}
	return &Verifier{secret: []byte(secret), opts: opts}, nil
}

func (v *Verifier) parserOptions() []jwt.ParserOption {
	po := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.opts.Clock.Now),
	}
	if v.opts.Leeway > 0 {
		po = append(po, jwt.WithLeeway(v.opts.Leeway))
	}
	if v.opts.Issuer != "" {
		po = append(po, jwt.WithIssuer(v.opts.Issuer))
	}
	if v.opts.Audience != "" {
		po = append(po, jwt.WithAudience(v.opts.Audience))
	}
	return po
}

// Verify parses and validates a token. Every failure is Unauthorized.
func (v *Verifier) Verify(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, apperrors.New(apperrors.KindUnauthorized, "missing bearer token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, v.parserOptions()...)
	if err != nil {
		return Identity{}, apperrors.Wrap(apperrors.KindUnauthorized, err, "invalid or expired token")
	}
	if !token.Valid {
		return Identity{}, apperrors.New(apperrors.KindUnauthorized, "invalid or expired token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, apperrors.New(apperrors.KindUnauthorized, "token has no subject")
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

// Issue signs a token for id that expires after ttl.
func (v *Verifier) Issue(id Identity, ttl time.Duration) (string, error) {
	now := v.opts.Clock.Now()
	claims := Claims{
		Email: id.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.UserID,
			Issuer:    v.opts.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if v.opts.Audience != "" {
		claims.Audience = jwt.ClaimStrings{v.opts.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

type identityKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by the auth middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
