package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vantage-crm/backend/internal/models"
	"github.com/vantage-crm/backend/internal/rbac"
	"github.com/vantage-crm/backend/internal/tenant"
)

type fakeDirectory struct {
	byEmail map[string]*models.User
	created []*models.User
}

func (f *fakeDirectory) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return f.byEmail[email], nil
}

func (f *fakeDirectory) Create(_ context.Context, orgID uuid.UUID, email, passwordHash, fullName string, roleID uuid.UUID) (*models.User, error) {
	u := &models.User{
		ID:             uuid.New(),
		OrganizationID: &orgID,
		Email:          email,
		Password:       passwordHash,
		FullName:       fullName,
		RoleID:         &roleID,
		CreatedAt:      time.Now(),
	}
	f.created = append(f.created, u)
	return u, nil
}

func (f *fakeDirectory) ListByOrganization(_ context.Context, _ uuid.UUID) ([]models.UserPublic, error) {
	var out []models.UserPublic
	for _, u := range f.byEmail {
		out = append(out, u.ToPublic())
	}
	return out, nil
}

// fakeRoleStore maps role id -> owning organization.
type fakeRoleStore struct {
	roles map[uuid.UUID]uuid.UUID
}

func (f *fakeRoleStore) GetByID(_ context.Context, orgID, roleID uuid.UUID) (*models.Role, error) {
	if owner, ok := f.roles[roleID]; ok && owner == orgID {
		org := orgID
		return &models.Role{ID: roleID, OrganizationID: &org, Name: "member"}, nil
	}
	return nil, rbac.ErrRoleNotFound
}

type usersFixture struct {
	router    *gin.Engine
	directory *fakeDirectory
	orgID     uuid.UUID
	roleID    uuid.UUID
}

func newUsersFixture(t *testing.T) *usersFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	orgID := uuid.New()
	roleID := uuid.New()
	directory := &fakeDirectory{byEmail: map[string]*models.User{}}
	roles := &fakeRoleStore{roles: map[uuid.UUID]uuid.UUID{roleID: orgID}}
	h := NewUsersHandler(directory, roles, zap.NewNop())

	scope := func(c *gin.Context) { c.Set(tenant.ContextOrgID, orgID) }
	router := gin.New()
	router.GET("/users", scope, h.List)
	router.POST("/users", scope, h.Invite)

	return &usersFixture{router: router, directory: directory, orgID: orgID, roleID: roleID}
}

func (fx *usersFixture) invite(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	return w
}

func TestInviteCreatesScopedMember(t *testing.T) {
	fx := newUsersFixture(t)

	w := fx.invite(t, `{"email":"New.Hire@acme.test","full_name":"New Hire","password":"hunter2hunter2","role_id":"`+fx.roleID.String()+`"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", w.Code, w.Body.String())
	}
	if len(fx.directory.created) != 1 {
		t.Fatalf("created %d users, want 1", len(fx.directory.created))
	}
	u := fx.directory.created[0]
	if u.Email != "new.hire@acme.test" {
		t.Fatalf("email = %q, want lowercased", u.Email)
	}
	if u.OrganizationID == nil || *u.OrganizationID != fx.orgID {
		t.Fatalf("organization = %v, want %s", u.OrganizationID, fx.orgID)
	}
	if u.Password == "hunter2hunter2" {
		t.Fatal("password stored unhashed")
	}
}

func TestInviteRejectsForeignRole(t *testing.T) {
	fx := newUsersFixture(t)

	w := fx.invite(t, `{"email":"x@acme.test","full_name":"X Y","password":"hunter2hunter2","role_id":"`+uuid.NewString()+`"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if len(fx.directory.created) != 0 {
		t.Fatal("user created despite foreign role")
	}
}

func TestInviteConflictsOnExistingEmail(t *testing.T) {
	fx := newUsersFixture(t)
	fx.directory.byEmail["taken@acme.test"] = &models.User{ID: uuid.New(), Email: "taken@acme.test"}

	w := fx.invite(t, `{"email":"taken@acme.test","full_name":"X Y","password":"hunter2hunter2","role_id":"`+fx.roleID.String()+`"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestListUsersReturnsDirectory(t *testing.T) {
	fx := newUsersFixture(t)
	fx.directory.byEmail["a@acme.test"] = &models.User{ID: uuid.New(), Email: "a@acme.test"}

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	w := httptest.NewRecorder()
	fx.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), "a@acme.test") {
		t.Fatalf("body missing user: %s", w.Body.String())
	}
}
