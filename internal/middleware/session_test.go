package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vantage-crm/backend/internal/auth"
	"github.com/vantage-crm/backend/internal/models"
	"github.com/vantage-crm/backend/pkg/utils"
)

type sessionUserStore struct {
	users map[uuid.UUID]*models.User
}

func (f *sessionUserStore) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *sessionUserStore) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	return f.users[id], nil
}

func (f *sessionUserStore) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	if u, ok := f.users[id]; ok {
		u.Password = hash
	}
	return nil
}

type sessionRefreshStore struct {
	tokens map[string]*auth.RefreshToken
}

func (f *sessionRefreshStore) Insert(_ context.Context, t *auth.RefreshToken) error {
	t.ID = uuid.New()
	f.tokens[t.TokenHash] = t
	return nil
}

func (f *sessionRefreshStore) Rotate(_ context.Context, hash string) (*auth.RefreshToken, error) {
	if t, ok := f.tokens[hash]; ok {
		t.Rotated = true
		return t, nil
	}
	return nil, auth.ErrRefreshNotFound
}

func (f *sessionRefreshStore) RevokeFamily(_ context.Context, familyID uuid.UUID) error {
	for _, t := range f.tokens {
		if t.FamilyID == familyID {
			t.Revoked = true
		}
	}
	return nil
}

func (f *sessionRefreshStore) RevokeAllForUser(_ context.Context, _ uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

type sessionFixture struct {
	router     *gin.Engine
	service    *auth.Service
	validator  *auth.Validator
	owner      *models.User
	superAdmin *models.User
}

// newSessionFixture wires /auth/logout and /auth/me the way cmd/server does:
// behind Auth only, with no tenant resolution.
func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tokens := auth.NewTokenService("session-secret", 15*time.Minute, 7*24*time.Hour)
	revocations := auth.NewRedisRevocationStore(client)
	validator := auth.NewValidator(tokens, revocations)

	hash, err := utils.HashPassword("correct horse")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	orgID := uuid.New()
	roleID := uuid.New()
	org := &models.Organization{ID: orgID, Name: "Acme", Slug: "acme", SubscriptionStatus: models.SubscriptionActive}
	owner := &models.User{
		ID:             uuid.New(),
		OrganizationID: &orgID,
		Email:          "owner@acme.test",
		Password:       hash,
		RoleID:         &roleID,
	}
	superAdmin := &models.User{
		ID:         uuid.New(),
		Email:      "ops@platform.test",
		Password:   hash,
		SuperAdmin: true,
	}
	users := &sessionUserStore{users: map[uuid.UUID]*models.User{
		owner.ID:      owner,
		superAdmin.ID: superAdmin,
	}}
	orgs := &fakeOrgStore{orgs: map[uuid.UUID]*models.Organization{orgID: org}}
	refresh := &sessionRefreshStore{tokens: map[string]*auth.RefreshToken{}}

	service := auth.NewService(tokens, validator, users, refresh, revocations, orgs, nil)
	handler := auth.NewHandler(service, zap.NewNop())

	router := gin.New()
	session := router.Group("/auth")
	session.Use(Auth(validator))
	session.POST("/logout", handler.Logout)
	session.GET("/me", handler.Me)
	session.POST("/change-password", handler.ChangePassword)

	return &sessionFixture{
		router:     router,
		service:    service,
		validator:  validator,
		owner:      owner,
		superAdmin: superAdmin,
	}
}

func (fx *sessionFixture) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func TestLogoutRouteRevokesToken(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	pair, _, err := fx.service.Login(ctx, "owner@acme.test", "correct horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	w := fx.do(t, http.MethodPost, "/auth/logout", pair.AccessToken)
	if w.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204 (%s)", w.Code, w.Body.String())
	}
	if _, err := fx.validator.Validate(ctx, pair.AccessToken, auth.TokenTypeAccess); !errors.Is(err, auth.ErrTokenRevoked) {
		t.Fatalf("access token err = %v, want ErrTokenRevoked", err)
	}

	// The revoked token no longer passes the middleware.
	if w := fx.do(t, http.MethodPost, "/auth/logout", pair.AccessToken); w.Code != http.StatusUnauthorized {
		t.Fatalf("second logout status = %d, want 401", w.Code)
	}
}

func TestSessionRoutesWorkWithoutTenantScope(t *testing.T) {
	fx := newSessionFixture(t)
	ctx := context.Background()

	pair, _, err := fx.service.Login(ctx, "ops@platform.test", "correct horse")
	if err != nil {
		t.Fatalf("super admin login: %v", err)
	}

	w := fx.do(t, http.MethodGet, "/auth/me", pair.AccessToken)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d, want 200 (%s)", w.Code, w.Body.String())
	}

	w = fx.do(t, http.MethodPost, "/auth/logout", pair.AccessToken)
	if w.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", w.Code)
	}
}
