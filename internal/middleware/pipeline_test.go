package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vantage-crm/backend/internal/auth"
	"github.com/vantage-crm/backend/internal/models"
	"github.com/vantage-crm/backend/internal/tenant"
	"github.com/vantage-crm/backend/pkg/response"
)

type fakeOrgStore struct {
	orgs map[uuid.UUID]*models.Organization
}

func (f *fakeOrgStore) GetByID(_ context.Context, id uuid.UUID) (*models.Organization, error) {
	return f.orgs[id], nil
}

type fakeChecker struct {
	granted map[string]bool
}

func (f *fakeChecker) HasPermission(_ context.Context, _ uuid.UUID, module, action string) (bool, error) {
	return f.granted[module+"."+action], nil
}

type pipelineFixture struct {
	router   *gin.Engine
	tokens   *auth.TokenService
	orgs     *fakeOrgStore
	checker  *fakeChecker
	orgA     *models.Organization
	orgB     *models.Organization
	disabled *models.Organization
}

// newPipelineFixture wires the full chain the way cmd/server does:
// Auth -> TenantResolve -> SubscriptionGuard -> RequirePermission -> handler.
// The handler echoes the organization id it would scope queries with.
func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	tokens := auth.NewTokenService("pipeline-secret", 15*time.Minute, 7*24*time.Hour)
	validator := auth.NewValidator(tokens, auth.NewRedisRevocationStore(client))

	orgA := &models.Organization{ID: uuid.New(), Name: "A", Slug: "a", SubscriptionStatus: models.SubscriptionActive}
	orgB := &models.Organization{ID: uuid.New(), Name: "B", Slug: "b", SubscriptionStatus: models.SubscriptionTrial}
	disabled := &models.Organization{ID: uuid.New(), Name: "D", Slug: "d", SubscriptionStatus: models.SubscriptionActive, Disabled: true}
	orgs := &fakeOrgStore{orgs: map[uuid.UUID]*models.Organization{
		orgA.ID:     orgA,
		orgB.ID:     orgB,
		disabled.ID: disabled,
	}}
	resolver := tenant.NewResolver(orgs)

	checker := &fakeChecker{granted: map[string]bool{
		"customers.read":   true,
		"customers.create": true,
	}}

	echo := func(c *gin.Context) {
		response.OK(c, gin.H{"org_id": tenant.OrgID(c).String()})
	}

	router := gin.New()
	api := router.Group("")
	api.Use(Auth(validator))
	api.Use(TenantResolve(resolver))
	guarded := api.Group("")
	guarded.Use(SubscriptionGuard())
	guarded.GET("/customers", RequirePermission(checker, "customers", "read"), echo)
	guarded.POST("/customers", RequirePermission(checker, "customers", "create"), echo)
	guarded.DELETE("/customers/:id", RequirePermission(checker, "customers", "delete"), echo)

	platform := router.Group("/platform")
	platform.Use(Auth(validator))
	platform.Use(RequireSuperAdmin())
	platform.GET("/organizations", func(c *gin.Context) { response.OK(c, gin.H{}) })

	return &pipelineFixture{
		router:   router,
		tokens:   tokens,
		orgs:     orgs,
		checker:  checker,
		orgA:     orgA,
		orgB:     orgB,
		disabled: disabled,
	}
}

func (fx *pipelineFixture) tokenFor(t *testing.T, org *models.Organization) string {
	t.Helper()
	roleID := uuid.New()
	params := auth.IssueParams{
		UserID:   uuid.New(),
		RoleID:   &roleID,
		FamilyID: uuid.New(),
	}
	if org != nil {
		params.OrgID = &org.ID
		params.SubscriptionStatus = org.SubscriptionStatus
	} else {
		params.SuperAdmin = true
	}
	signed, _, err := fx.tokens.Issue(params, auth.TokenTypeAccess)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return signed
}

func (fx *pipelineFixture) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorBody {
	t.Helper()
	var body response.ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (raw %s)", err, w.Body.String())
	}
	return body
}

func TestPipelineRejectsMissingToken(t *testing.T) {
	fx := newPipelineFixture(t)
	w := fx.do(t, http.MethodGet, "/customers", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if body := decodeError(t, w); body.Error != response.CodeUnauthenticated {
		t.Fatalf("code = %s, want UNAUTHENTICATED", body.Error)
	}
}

func TestPipelineReportsExpiredToken(t *testing.T) {
	fx := newPipelineFixture(t)
	expired := auth.NewTokenService("pipeline-secret", -time.Minute, time.Hour)
	signed, _, err := expired.Issue(auth.IssueParams{
		UserID:   uuid.New(),
		OrgID:    &fx.orgA.ID,
		FamilyID: uuid.New(),
	}, auth.TokenTypeAccess)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	w := fx.do(t, http.MethodGet, "/customers", signed)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	if body := decodeError(t, w); body.Error != response.CodeTokenExpired {
		t.Fatalf("code = %s, want TOKEN_EXPIRED", body.Error)
	}
}

func TestPipelineTenantNotFound(t *testing.T) {
	fx := newPipelineFixture(t)
	ghost := &models.Organization{ID: uuid.New()}
	w := fx.do(t, http.MethodGet, "/customers", fx.tokenFor(t, ghost))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if body := decodeError(t, w); body.Error != response.CodeTenantNotFound {
		t.Fatalf("code = %s, want TENANT_NOT_FOUND", body.Error)
	}
}

func TestPipelineTenantDisabled(t *testing.T) {
	fx := newPipelineFixture(t)
	w := fx.do(t, http.MethodGet, "/customers", fx.tokenFor(t, fx.disabled))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if body := decodeError(t, w); body.Error != response.CodeTenantDisabled {
		t.Fatalf("code = %s, want TENANT_DISABLED", body.Error)
	}
}

func TestPipelineTrialBlocksWritesButNotReads(t *testing.T) {
	fx := newPipelineFixture(t)
	token := fx.tokenFor(t, fx.orgB) // trial

	w := fx.do(t, http.MethodGet, "/customers", token)
	if w.Code != http.StatusOK {
		t.Fatalf("trial read status = %d, want 200", w.Code)
	}

	w = fx.do(t, http.MethodPost, "/customers", token)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("trial write status = %d, want 402", w.Code)
	}
	if body := decodeError(t, w); body.Error != response.CodeUpgradeRequired {
		t.Fatalf("code = %s, want UPGRADE_REQUIRED", body.Error)
	}
}

func TestPipelineGuardUsesCurrentStatusNotSnapshot(t *testing.T) {
	fx := newPipelineFixture(t)
	token := fx.tokenFor(t, fx.orgA) // snapshot says active

	// The organization expires after the token was issued; the guard must see
	// the current state immediately.
	fx.orgA.SubscriptionStatus = models.SubscriptionExpired
	w := fx.do(t, http.MethodPost, "/customers", token)
	if w.Code != http.StatusPaymentRequired {
		t.Fatalf("status = %d, want 402", w.Code)
	}
}

func TestPipelinePermissionDenied(t *testing.T) {
	fx := newPipelineFixture(t)
	w := fx.do(t, http.MethodDelete, "/customers/"+uuid.NewString(), fx.tokenFor(t, fx.orgA))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
	if body := decodeError(t, w); body.Error != response.CodeForbidden {
		t.Fatalf("code = %s, want FORBIDDEN", body.Error)
	}
}

func TestPipelineScopesHandlerToTokenOrg(t *testing.T) {
	fx := newPipelineFixture(t)
	w := fx.do(t, http.MethodGet, "/customers?org_id="+fx.orgB.ID.String(), fx.tokenFor(t, fx.orgA))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Data struct {
			OrgID string `json:"org_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	// The query parameter naming another org must be irrelevant: scope comes
	// from the token only.
	if body.Data.OrgID != fx.orgA.ID.String() {
		t.Fatalf("handler org = %s, want %s", body.Data.OrgID, fx.orgA.ID)
	}
}

func TestPipelineSuperAdminCannotReachTenantRoutes(t *testing.T) {
	fx := newPipelineFixture(t)
	w := fx.do(t, http.MethodGet, "/customers", fx.tokenFor(t, nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestPlatformRequiresSuperAdmin(t *testing.T) {
	fx := newPipelineFixture(t)

	w := fx.do(t, http.MethodGet, "/platform/organizations", fx.tokenFor(t, fx.orgA))
	if w.Code != http.StatusForbidden {
		t.Fatalf("tenant token on platform route: status = %d, want 403", w.Code)
	}

	w = fx.do(t, http.MethodGet, "/platform/organizations", fx.tokenFor(t, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("super admin on platform route: status = %d, want 200", w.Code)
	}
}
