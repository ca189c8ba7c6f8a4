package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-user-auth-api/config"
	"github.com/FACorreiaa/go-user-auth-api/internal/api"
	"github.com/FACorreiaa/go-user-auth-api/internal/types"
)

const (
	scopeAccess  = "access"
	scopeRefresh = "refresh"

	opaqueTokenLength   = 32
	opaqueTokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var ErrTokenInvalid = errors.New("invalid or expired token")

// TokenIssuer creates and validates the signed, self-describing access and
// refresh tokens. Reset and verification tokens are opaque random strings
// stored on the account row instead; see NewOpaqueToken.
type TokenIssuer struct {
	cfg config.JWTConfig
	now func() time.Time
}

func NewTokenIssuer(cfg config.JWTConfig) *TokenIssuer {
	return &TokenIssuer{cfg: cfg, now: time.Now}
}

// claimsFor is the single serialization point from an Account to a token
// claim set. The schema is fixed; nothing is pulled off the account
// reflectively.
func (ti *TokenIssuer) claimsFor(acc *types.Account, scope string, ttl time.Duration) *types.Claims {
	now := ti.now()
	return &types.Claims{
		UserID:   acc.ID,
		Username: acc.Username,
		Email:    acc.Email,
		Role:     acc.Role,
		Scope:    scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   acc.ID,
			Issuer:    ti.cfg.Issuer,
			Audience:  jwt.ClaimStrings{ti.cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

// IssueAccessToken returns a signed access token and its lifetime in seconds.
func (ti *TokenIssuer) IssueAccessToken(acc *types.Account) (string, int64, error) {
	claims := ti.claimsFor(acc, scopeAccess, ti.cfg.AccessTokenTTL)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(ti.cfg.SecretKey))
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, int64(ti.cfg.AccessTokenTTL.Seconds()), nil
}

// IssueRefreshToken returns a signed refresh token. Extended sessions get
// the longer lifetime configured for "remember me" logins.
func (ti *TokenIssuer) IssueRefreshToken(acc *types.Account, extended bool) (string, int64, error) {
	ttl := ti.cfg.RefreshTokenTTL
	if extended {
		ttl = ti.cfg.RefreshTokenExtendedTTL
	}
	claims := ti.claimsFor(acc, scopeRefresh, ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(ti.cfg.RefreshSecretKey))
	if err != nil {
		return "", 0, fmt.Errorf("failed to sign refresh token: %w", err)
	}
	return signed, int64(ttl.Seconds()), nil
}

// ParseAccessToken validates signature, expiry, issuer, audience and scope
// of an access token and returns its claims.
func (ti *TokenIssuer) ParseAccessToken(tokenString string) (*types.Claims, error) {
	return ti.parse(tokenString, scopeAccess, []byte(ti.cfg.SecretKey))
}

// ParseRefreshToken validates a refresh token the same way, against the
// refresh signing key.
func (ti *TokenIssuer) ParseRefreshToken(tokenString string) (*types.Claims, error) {
	return ti.parse(tokenString, scopeRefresh, []byte(ti.cfg.RefreshSecretKey))
}

func (ti *TokenIssuer) parse(tokenString, scope string, key []byte) (*types.Claims, error) {
	claims := &types.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return key, nil
	}, jwt.WithTimeFunc(ti.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}
	if !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Scope != scope {
		return nil, fmt.Errorf("%w: wrong token scope", ErrTokenInvalid)
	}
	if claims.Issuer != ti.cfg.Issuer {
		return nil, fmt.Errorf("%w: wrong issuer", ErrTokenInvalid)
	}
	if !api.VerifyAudience(claims.Audience, ti.cfg.Audience) {
		return nil, fmt.Errorf("%w: wrong audience", ErrTokenInvalid)
	}
	return claims, nil
}

// NewOpaqueToken generates a high-entropy random string used as a stored
// capability token (password reset, email verification). These are
// revocable by simply overwriting the stored value.
func NewOpaqueToken() (string, error) {
	buf := make([]byte, opaqueTokenLength)
	max := big.NewInt(int64(len(opaqueTokenAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate token: %w", err)
		}
		buf[i] = opaqueTokenAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// OpaqueTokenMatches compares a presented token against the stored value in
// constant time. A nil or empty stored value never matches.
func OpaqueTokenMatches(stored *string, presented string) bool {
	if stored == nil || *stored == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*stored), []byte(presented)) == 1
}
