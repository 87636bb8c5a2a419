package auth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vantage-crm/backend/internal/models"
	"github.com/vantage-crm/backend/pkg/utils"
)

var (
	// ErrInvalidCredentials is returned for any login failure so callers
	// cannot learn which emails exist.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrTokenTheft is returned when an already-rotated refresh token is
	// presented again. The whole family has been revoked by the time the
	// caller sees this.
	ErrTokenTheft = errors.New("refresh token reuse detected")
)

// UserStore is the principal lookup the auth service needs.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// OrgStore reads the organization's current state so refreshed tokens carry
// the live subscription status, not the one cached at login.
type OrgStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
}

// TokenPair is an issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service implements login, refresh rotation, logout, and password change.
type Service struct {
	tokens      *TokenService
	validator   *Validator
	users       UserStore
	refresh     RefreshStore
	revocations RevocationStore
	orgs        OrgStore
	logger      *zap.Logger
}

// NewService creates the auth service.
func NewService(tokens *TokenService, validator *Validator, users UserStore, refresh RefreshStore, revocations RevocationStore, orgs OrgStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tokens:      tokens,
		validator:   validator,
		users:       users,
		refresh:     refresh,
		revocations: revocations,
		orgs:        orgs,
		logger:      logger,
	}
}

// Login verifies credentials and starts a new token family.
func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, *models.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil || user == nil || user.Disabled {
		return nil, nil, ErrInvalidCredentials
	}
	if !utils.CheckPassword(password, user.Password) {
		return nil, nil, ErrInvalidCredentials
	}
	pair, err := s.issuePair(ctx, user, uuid.New())
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Refresh rotates the refresh token and issues a fresh pair reflecting the
// principal's and organization's current state. Reuse of a rotated token
// revokes the family and returns ErrTokenTheft.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.validator.Validate(ctx, refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}

	stored, err := s.refresh.Rotate(ctx, HashToken(refreshToken))
	if errors.Is(err, ErrRefreshReused) {
		family := claims.FamilyID
		if stored != nil {
			family = stored.FamilyID.String()
		}
		_ = s.revocations.RevokeFamily(ctx, family, s.tokens.RefreshTTL())
		s.logger.Warn("refresh token reuse detected, family revoked",
			zap.String("family_id", family),
			zap.String("user_id", claims.Subject),
		)
		return nil, ErrTokenTheft
	}
	if err != nil {
		if errors.Is(err, ErrRefreshNotFound) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil || user == nil || user.Disabled {
		_ = s.refresh.RevokeFamily(ctx, stored.FamilyID)
		_ = s.revocations.RevokeFamily(ctx, stored.FamilyID.String(), s.tokens.RefreshTTL())
		return nil, ErrTokenInvalid
	}

	// The old refresh token is spent; deny it everywhere immediately.
	_ = s.revocations.RevokeToken(ctx, claims.ID, time.Until(claims.ExpiresAt.Time))

	return s.issuePair(ctx, user, stored.FamilyID)
}

// Logout revokes the access token and, when the refresh token is supplied,
// its whole family.
func (s *Service) Logout(ctx context.Context, access *Claims, refreshToken string) error {
	if err := s.revocations.RevokeToken(ctx, access.ID, time.Until(access.ExpiresAt.Time)); err != nil {
		return err
	}
	if refreshToken == "" {
		return nil
	}
	claims, err := s.tokens.Parse(refreshToken, TokenTypeRefresh)
	if err != nil {
		return nil
	}
	if family, parseErr := uuid.Parse(claims.FamilyID); parseErr == nil {
		_ = s.refresh.RevokeFamily(ctx, family)
	}
	return s.revocations.RevokeFamily(ctx, claims.FamilyID, s.tokens.RefreshTTL())
}

// ChangePassword updates the credential and invalidates every session for
// the principal.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		return ErrInvalidCredentials
	}
	if !utils.CheckPassword(current, user.Password) {
		return ErrInvalidCredentials
	}
	hash, err := utils.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		return err
	}
	families, err := s.refresh.RevokeAllForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, family := range families {
		_ = s.revocations.RevokeFamily(ctx, family.String(), s.tokens.RefreshTTL())
	}
	return nil
}

// issuePair builds the session snapshot from current state and signs both
// tokens under the given family.
func (s *Service) issuePair(ctx context.Context, user *models.User, familyID uuid.UUID) (*TokenPair, error) {
	params := IssueParams{
		UserID:     user.ID,
		OrgID:      user.OrganizationID,
		RoleID:     user.RoleID,
		SuperAdmin: user.SuperAdmin,
		FamilyID:   familyID,
	}
	if user.OrganizationID != nil {
		org, err := s.orgs.GetByID(ctx, *user.OrganizationID)
		if err != nil || org == nil {
			return nil, ErrTokenInvalid
		}
		params.SubscriptionStatus = org.SubscriptionStatus
	}

	refreshSigned, _, err := s.tokens.Issue(params, TokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	if err := s.refresh.Insert(ctx, &RefreshToken{
		FamilyID:  familyID,
		UserID:    user.ID,
		TokenHash: HashToken(refreshSigned),
		ExpiresAt: time.Now().Add(s.tokens.RefreshTTL()),
	}); err != nil {
		return nil, err
	}

	accessSigned, _, err := s.tokens.Issue(params, TokenTypeAccess)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  accessSigned,
		RefreshToken: refreshSigned,
		ExpiresIn:    int64(s.tokens.AccessTTL().Seconds()),
	}, nil
}
