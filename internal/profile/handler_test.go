package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"operationcode_backend/internal/common"
	"operationcode_backend/internal/middleware"
	"operationcode_backend/internal/platform/database"
	"operationcode_backend/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

const adminGroup = "ProfileAdmin"

type fixture struct {
	router *gin.Engine
	db     *gorm.DB
	member *user.User
	admin  *user.User
}

// testAuth trusts the X-Test-User header and grants ProfileAdmin when X-Test-Admin is set.
func testAuth(c *gin.Context) {
	id, err := uuid.Parse(c.GetHeader("X-Test-User"))
	if err != nil {
		common.RespondWithError(c, common.ErrUnauthorized)
		return
	}
	c.Set(common.UserIDKey, id)
	if c.GetHeader("X-Test-Admin") != "" {
		c.Set(common.UserGroupsKey, []string{adminGroup})
	}
	c.Next()
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewSQLiteMemory(uuid.NewString())
	require.NoError(t, err)
	require.NoError(t, user.AutoMigrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	users := user.NewGORMRepository(db)
	member := &user.User{Username: "member", Email: "member@example.com", IsActive: true}
	require.NoError(t, users.Create(context.Background(), member, &user.Profile{City: "Norfolk", Zip: "23510"}, nil))
	admin := &user.User{Username: "admin", Email: "admin@example.com", IsActive: true}
	require.NoError(t, users.Create(context.Background(), admin, nil, nil))

	logger := zaptest.NewLogger(t)
	h := NewHandler(NewService(NewGORMRepository(db), logger), logger)
	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"), testAuth, middleware.RequireGroups(adminGroup))

	return &fixture{router: r, db: db, member: member, admin: admin}
}

func (f *fixture) do(method, path string, as *user.User, isAdmin bool, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("X-Test-User", as.ID.String())
	}
	if isAdmin {
		req.Header.Set("X-Test-Admin", "1")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decodeProfile(t *testing.T, w *httptest.ResponseRecorder) ProfileResponse {
	t.Helper()
	var body struct {
		Data ProfileResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data
}

func TestOwnProfile(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/v1/auth/profile/", f.member, false, nil)
	require.Equal(t, http.StatusOK, w.Code)
	p := decodeProfile(t, w)
	assert.Equal(t, f.member.ID, p.UserID)
	assert.Equal(t, "Norfolk", p.City)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/auth/profile/", nil, false, nil).Code)
}

func TestPatchKeepsOtherFieldsPutClearsThem(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPatch, "/api/v1/auth/profile/", f.member, false, map[string]any{
		"company_name": "Operation Code",
		"is_mentor":    true,
	})
	require.Equal(t, http.StatusOK, w.Code)
	p := decodeProfile(t, w)
	assert.Equal(t, "Operation Code", p.CompanyName)
	assert.Equal(t, "Norfolk", p.City)
	assert.True(t, p.IsMentor)

	w = f.do(http.MethodPut, "/api/v1/auth/profile/", f.member, false, map[string]any{"city": "Portland"})
	require.Equal(t, http.StatusOK, w.Code)
	p = decodeProfile(t, w)
	assert.Equal(t, "Portland", p.City)
	assert.Empty(t, p.CompanyName)
	assert.Empty(t, p.Zip)
	assert.False(t, p.IsMentor)
}

func TestOwnProfileValidation(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPatch, "/api/v1/auth/profile/", f.member, false, map[string]any{"zip": strings.Repeat("9", 11)})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestAdminRequiresGroup(t *testing.T) {
	f := newFixture(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodPatch} {
		for _, path := range []string{
			"/api/v1/auth/profile/admin/",
			"/api/v1/auth/profile/admin/?email=member@example.com",
			"/api/v1/auth/profile/admin/?email=nobody@example.com",
		} {
			w := f.do(method, path, f.member, false, map[string]any{"city": "Nowhere"})
			assert.Equal(t, http.StatusForbidden, w.Code, "%s %s", method, path)
		}
	}

	var p user.Profile
	require.NoError(t, f.db.Where("user_id = ?", f.member.ID).Take(&p).Error)
	assert.Equal(t, "Norfolk", p.City)
}

func TestAdminMissingEmail(t *testing.T) {
	f := newFixture(t)

	for _, method := range []string{http.MethodGet, http.MethodPut, http.MethodPatch} {
		w := f.do(method, "/api/v1/auth/profile/admin/", f.admin, true, map[string]any{})
		require.Equal(t, http.StatusBadRequest, w.Code, method)

		var apiErr struct {
			Details map[string]string `json:"details"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
		assert.Equal(t, "Missing email query param", apiErr.Details["error"])
	}
}

func TestAdminUnknownEmail(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/api/v1/auth/profile/admin/?email=nobody@example.com", f.admin, true, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminGetAndUpdateByEmail(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodGet, "/api/v1/auth/profile/admin/?email=Member@Example.com", f.admin, true, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, f.member.ID, decodeProfile(t, w).UserID)

	w = f.do(http.MethodPatch, "/api/v1/auth/profile/admin/?email=member@example.com", f.admin, true,
		map[string]any{"military_status": "veteran"})
	require.Equal(t, http.StatusOK, w.Code)
	p := decodeProfile(t, w)
	assert.Equal(t, "veteran", p.MilitaryStatus)
	assert.Equal(t, "Norfolk", p.City)
}
