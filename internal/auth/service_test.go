package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vantage-crm/backend/internal/models"
	"github.com/vantage-crm/backend/pkg/utils"
)

type fakeUserStore struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return f.users[id], nil
}

func (f *fakeUserStore) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	if u, ok := f.users[id]; ok {
		u.Password = hash
	}
	return nil
}

type fakeOrgStore struct {
	orgs map[uuid.UUID]*models.Organization
}

func (f *fakeOrgStore) GetByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	return f.orgs[id], nil
}

// fakeRefreshStore mirrors the Postgres repository's rotation semantics in
// memory, keyed by token hash.
type fakeRefreshStore struct {
	tokens map[string]*RefreshToken
}

func newFakeRefreshStore() *fakeRefreshStore {
	return &fakeRefreshStore{tokens: make(map[string]*RefreshToken)}
}

func (f *fakeRefreshStore) Insert(_ context.Context, t *RefreshToken) error {
	t.ID = uuid.New()
	t.CreatedAt = time.Now()
	f.tokens[t.TokenHash] = t
	return nil
}

func (f *fakeRefreshStore) Rotate(_ context.Context, hash string) (*RefreshToken, error) {
	t, ok := f.tokens[hash]
	if !ok {
		return nil, ErrRefreshNotFound
	}
	if t.Rotated || t.Revoked || time.Now().After(t.ExpiresAt) {
		for _, other := range f.tokens {
			if other.FamilyID == t.FamilyID {
				other.Revoked = true
			}
		}
		return t, ErrRefreshReused
	}
	t.Rotated = true
	return t, nil
}

func (f *fakeRefreshStore) RevokeFamily(_ context.Context, familyID uuid.UUID) error {
	for _, t := range f.tokens {
		if t.FamilyID == familyID {
			t.Revoked = true
		}
	}
	return nil
}

func (f *fakeRefreshStore) RevokeAllForUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]struct{})
	var families []uuid.UUID
	for _, t := range f.tokens {
		if t.UserID == userID && !t.Revoked {
			t.Revoked = true
			if _, ok := seen[t.FamilyID]; !ok {
				seen[t.FamilyID] = struct{}{}
				families = append(families, t.FamilyID)
			}
		}
	}
	return families, nil
}

type serviceFixture struct {
	service *Service
	tokens  *TokenService
	users   *fakeUserStore
	user    *models.User
	org     *models.Organization
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tokens := newTestTokenService()
	revocations := NewRedisRevocationStore(client)
	validator := NewValidator(tokens, revocations)

	hash, err := utils.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	orgID := uuid.New()
	roleID := uuid.New()
	org := &models.Organization{ID: orgID, Name: "Acme", Slug: "acme", SubscriptionStatus: models.SubscriptionActive}
	user := &models.User{
		ID:             uuid.New(),
		OrganizationID: &orgID,
		Email:          "owner@acme.test",
		Password:       hash,
		RoleID:         &roleID,
	}
	users := &fakeUserStore{users: map[uuid.UUID]*models.User{user.ID: user}}
	orgs := &fakeOrgStore{orgs: map[uuid.UUID]*models.Organization{orgID: org}}

	service := NewService(tokens, validator, users, newFakeRefreshStore(), revocations, orgs, nil)
	return &serviceFixture{service: service, tokens: tokens, users: users, user: user, org: org}
}

func TestLoginIssuesScopedPair(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	pair, user, err := fx.service.Login(ctx, "owner@acme.test", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.ID != fx.user.ID {
		t.Fatalf("user = %s, want %s", user.ID, fx.user.ID)
	}

	claims, err := fx.tokens.Parse(pair.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.OrgID != fx.org.ID.String() {
		t.Fatalf("org claim = %s, want %s", claims.OrgID, fx.org.ID)
	}
	if claims.SubscriptionStatus != models.SubscriptionActive {
		t.Fatalf("subscription snapshot = %s, want active", claims.SubscriptionStatus)
	}
	if _, err := fx.tokens.Parse(pair.RefreshToken, TokenTypeRefresh); err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
}

func TestLoginFailureIsGeneric(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	_, _, errUnknown := fx.service.Login(ctx, "nobody@acme.test", "whatever")
	_, _, errWrongPw := fx.service.Login(ctx, "owner@acme.test", "wrong")
	if !errors.Is(errUnknown, ErrInvalidCredentials) || !errors.Is(errWrongPw, ErrInvalidCredentials) {
		t.Fatalf("errs = %v / %v, want ErrInvalidCredentials for both", errUnknown, errWrongPw)
	}
	if errUnknown.Error() != errWrongPw.Error() {
		t.Fatal("unknown-email and wrong-password failures must be indistinguishable")
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	pair, _, err := fx.service.Login(ctx, "owner@acme.test", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	next, err := fx.service.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if next.RefreshToken == pair.RefreshToken {
		t.Fatal("refresh token not rotated")
	}

	oldClaims, _ := fx.tokens.Parse(pair.RefreshToken, TokenTypeRefresh)
	newClaims, _ := fx.tokens.Parse(next.RefreshToken, TokenTypeRefresh)
	if oldClaims.FamilyID != newClaims.FamilyID {
		t.Fatalf("family changed across rotation: %s -> %s", oldClaims.FamilyID, newClaims.FamilyID)
	}
}

func TestRefreshPicksUpCurrentSubscription(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	pair, _, err := fx.service.Login(ctx, "owner@acme.test", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	fx.org.SubscriptionStatus = models.SubscriptionExpired
	next, err := fx.service.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	claims, err := fx.tokens.Parse(next.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.SubscriptionStatus != models.SubscriptionExpired {
		t.Fatalf("snapshot = %s, want expired", claims.SubscriptionStatus)
	}
}

func TestRefreshReuseRevokesFamily(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	pair, _, err := fx.service.Login(ctx, "owner@acme.test", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	next, err := fx.service.Refresh(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("first refresh: %v", err)
	}

	// Presenting the already-rotated token is treated as theft.
	if _, err := fx.service.Refresh(ctx, pair.RefreshToken); !errors.Is(err, ErrTokenTheft) {
		t.Fatalf("err = %v, want ErrTokenTheft", err)
	}

	// The whole family is dead, including the legitimately rotated token and
	// the access token issued with it.
	if _, err := fx.service.Refresh(ctx, next.RefreshToken); err == nil {
		t.Fatal("rotated token still usable after family revocation")
	}
	if _, err := fx.service.validator.Validate(ctx, next.AccessToken, TokenTypeAccess); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("access token err = %v, want ErrTokenRevoked", err)
	}
}

func TestLogoutRevokesAccessAndFamily(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	pair, _, err := fx.service.Login(ctx, "owner@acme.test", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	access, err := fx.service.validator.Validate(ctx, pair.AccessToken, TokenTypeAccess)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if err := fx.service.Logout(ctx, access, pair.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := fx.service.validator.Validate(ctx, pair.AccessToken, TokenTypeAccess); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("access err = %v, want ErrTokenRevoked", err)
	}
	if _, err := fx.service.Refresh(ctx, pair.RefreshToken); err == nil {
		t.Fatal("refresh token usable after logout")
	}
}

func TestChangePasswordKillsAllSessions(t *testing.T) {
	fx := newServiceFixture(t)
	ctx := context.Background()

	first, _, err := fx.service.Login(ctx, "owner@acme.test", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	second, _, err := fx.service.Login(ctx, "owner@acme.test", "correct horse")
	if err != nil {
		t.Fatalf("second login: %v", err)
	}

	if err := fx.service.ChangePassword(ctx, fx.user.ID, "correct horse", "battery staple"); err != nil {
		t.Fatalf("change password: %v", err)
	}

	for i, pair := range []*TokenPair{first, second} {
		if _, err := fx.service.Refresh(ctx, pair.RefreshToken); err == nil {
			t.Fatalf("session %d refresh still usable after password change", i)
		}
		if _, err := fx.service.validator.Validate(ctx, pair.AccessToken, TokenTypeAccess); !errors.Is(err, ErrTokenRevoked) {
			t.Fatalf("session %d access err = %v, want ErrTokenRevoked", i, err)
		}
	}

	if _, _, err := fx.service.Login(ctx, "owner@acme.test", "battery staple"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}
