// Package jwttoken issues and validates the access tokens the HTTP layer
// authenticates with. Tokens are HS256-signed and carry the firm, user and
// session identity that the rest of the platform reads from the request
// context.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
)

// Claims are the JWT claims carried by platform access tokens.
type Claims struct {
	FirmID    string `json:"firm_id"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	jwt.RegisteredClaims
}

// Identity is the parsed, validated identity a token asserts.
type Identity struct {
	FirmID    id.FirmID
	UserID    id.UserID
	SessionID id.SessionID
}

// Service signs and validates access tokens.
type Service struct {
	signingKey []byte
	issuer     string
}

// NewService constructs a token service around a shared HMAC signing key.
func NewService(signingKey []byte, issuer string) *Service {
	return &Service{signingKey: signingKey, issuer: issuer}
}

// Issue signs a token asserting the given identity, valid for expiresIn.
func (s *Service) Issue(ident Identity, expiresIn time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		FirmID:    ident.FirmID.String(),
		UserID:    ident.UserID.String(),
		SessionID: ident.SessionID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "sign token")
	}
	return signed, nil
}

// Verify validates a token's signature and registered claims and returns
// the identity it asserts. Only HMAC signatures are accepted; a token
// signed with any other method is rejected before key lookup.
func (s *Service) Verify(tokenString string) (Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return identityFromClaims(claims)
}

// UnverifiedIdentity parses a token WITHOUT validating its signature or
// expiry and returns whatever identity its claims assert. Used only to
// attribute failed authentication attempts in the audit log; never trust
// the result for authorization.
func (s *Service) UnverifiedIdentity(tokenString string) (Identity, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "unparseable token")
	}
	return identityFromClaims(claims)
}

func identityFromClaims(claims *Claims) (Identity, error) {
	firmID, err := id.ParseFirmID(claims.FirmID)
	if err != nil {
		return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "token carries no firm")
	}
	userID, err := id.ParseUserID(claims.UserID)
	if err != nil {
		return Identity{}, dErrors.New(dErrors.CodeUnauthorized, "token carries no user")
	}
	ident := Identity{FirmID: firmID, UserID: userID}
	if sessionID, err := id.ParseSessionID(claims.SessionID); err == nil {
		ident.SessionID = sessionID
	}
	return ident, nil
}
