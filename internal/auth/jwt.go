package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vantage-crm/backend/internal/models"
)

var (
	// ErrTokenInvalid covers malformed, mis-signed, wrong-type, and
	// incomplete tokens. A token without an organization claim (and without
	// the super-admin flag) is invalid, never defaulted to a wider scope.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired is returned when the token signature is valid but the
	// expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenRevoked is returned when the token (or its family) is on the
	// revocation list.
	ErrTokenRevoked = errors.New("token revoked")
)

// TokenType distinguishes access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

const issuer = "vantage-crm"

// Claims is the only supported JWT claims shape. Subject is the principal id,
// ID the jti. FamilyID ties every token to the refresh-token family it was
// issued under, so revoking a family kills its access tokens too.
type Claims struct {
	OrgID              string                    `json:"org_id,omitempty"`
	RoleID             string                    `json:"role_id,omitempty"`
	SubscriptionStatus models.SubscriptionStatus `json:"subscription_status,omitempty"`
	SuperAdmin         bool                      `json:"super_admin,omitempty"`
	TokenType          TokenType                 `json:"token_type"`
	FamilyID           string                    `json:"family_id,omitempty"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// OrganizationID parses the org claim.
func (c *Claims) OrganizationID() (uuid.UUID, error) {
	return uuid.Parse(c.OrgID)
}

// IssueParams carries the session snapshot embedded at issue time.
type IssueParams struct {
	UserID             uuid.UUID
	OrgID              *uuid.UUID
	RoleID             *uuid.UUID
	SubscriptionStatus models.SubscriptionStatus
	SuperAdmin         bool
	FamilyID           uuid.UUID
}

// TokenService issues and validates signed access and refresh tokens.
type TokenService struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

// NewTokenService creates a token service signing with HS256.
func NewTokenService(secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// AccessTTL returns the access-token lifetime.
func (s *TokenService) AccessTTL() time.Duration { return s.accessTTL }

// RefreshTTL returns the refresh-token lifetime.
func (s *TokenService) RefreshTTL() time.Duration { return s.refreshTTL }

// Issue signs a token of the given type. Non-super-admin sessions must carry
// an organization id; issuing an unscoped tenant token is refused outright.
func (s *TokenService) Issue(p IssueParams, tokenType TokenType) (string, *Claims, error) {
	if p.OrgID == nil && !p.SuperAdmin {
		return "", nil, ErrTokenInvalid
	}
	ttl := s.accessTTL
	if tokenType == TokenTypeRefresh {
		ttl = s.refreshTTL
	}
	now := time.Now().UTC()
	claims := Claims{
		SubscriptionStatus: p.SubscriptionStatus,
		SuperAdmin:         p.SuperAdmin,
		TokenType:          tokenType,
		FamilyID:           p.FamilyID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.New().String(),
		},
	}
	if p.OrgID != nil {
		claims.OrgID = p.OrgID.String()
	}
	if p.RoleID != nil {
		claims.RoleID = p.RoleID.String()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return signed, &claims, nil
}

// Parse verifies the signature and expiry and checks the expected token type
// and the organization invariant. It does not consult the revocation list;
// use Validator.Validate for the full check.
func (s *TokenService) Parse(tokenString string, expected TokenType) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if claims.Issuer != issuer || claims.TokenType != expected {
		return nil, ErrTokenInvalid
	}
	if _, err := claims.UserID(); err != nil {
		return nil, ErrTokenInvalid
	}
	// The hard invariant: a tenant token without org_id is rejected, never
	// resolved to a default organization.
	if claims.OrgID == "" && !claims.SuperAdmin {
		return nil, ErrTokenInvalid
	}
	if claims.OrgID != "" {
		if _, err := claims.OrganizationID(); err != nil {
			return nil, ErrTokenInvalid
		}
	}
	return claims, nil
}
