package user

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"operationcode_backend/internal/common"
	"operationcode_backend/internal/shared"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Register(ctx context.Context, req RegisterRequest) (*shared.User, *shared.TokenResponse, error) {
	args := m.Called(ctx, req)
	u, _ := args.Get(0).(*shared.User)
	t, _ := args.Get(1).(*shared.TokenResponse)
	return u, t, args.Error(2)
}

func (m *MockService) Login(ctx context.Context, email, password string) (*shared.User, *shared.TokenResponse, error) {
	args := m.Called(ctx, email, password)
	u, _ := args.Get(0).(*shared.User)
	t, _ := args.Get(1).(*shared.TokenResponse)
	return u, t, args.Error(2)
}

func (m *MockService) IssueTokens(u *shared.User) (*shared.TokenResponse, error) {
	args := m.Called(u)
	t, _ := args.Get(0).(*shared.TokenResponse)
	return t, args.Error(1)
}

func (m *MockService) GetUserByID(ctx context.Context, id uuid.UUID) (*shared.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*shared.User)
	return u, args.Error(1)
}

func (m *MockService) GetUserByEmail(ctx context.Context, email string) (*shared.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*shared.User)
	return u, args.Error(1)
}

func (m *MockService) UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (*shared.User, error) {
	args := m.Called(ctx, id, req)
	u, _ := args.Get(0).(*shared.User)
	return u, args.Error(1)
}

func (m *MockService) FindOrCreateSocialUser(ctx context.Context, profile shared.OAuthUserProfile) (*shared.User, bool, error) {
	args := m.Called(ctx, profile)
	u, _ := args.Get(0).(*shared.User)
	return u, args.Bool(1), args.Error(2)
}

func (m *MockService) ConnectSocialAccount(ctx context.Context, userID uuid.UUID, profile shared.OAuthUserProfile) error {
	return m.Called(ctx, userID, profile).Error(0)
}

func (m *MockService) AddUserToGroup(ctx context.Context, email, group string) error {
	return m.Called(ctx, email, group).Error(0)
}

func setupUserRouter(t *testing.T, svc Service, userID uuid.UUID) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	fakeAuth := func(c *gin.Context) {
		if userID != uuid.Nil {
			c.Set(common.UserIDKey, userID)
		}
		c.Next()
	}
	NewHandler(svc, zaptest.NewLogger(t)).RegisterRoutes(r.Group("/api/v1"), fakeAuth)
	return r
}

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGetMe(t *testing.T) {
	id := uuid.New()
	svc := new(MockService)
	svc.On("GetUserByID", mock.Anything, id).Return(&shared.User{ID: id, Email: "me@example.com", FirstName: "Me"}, nil)

	w := doJSON(setupUserRouter(t, svc, id), http.MethodGet, "/api/v1/auth/user/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data shared.UserResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "me@example.com", body.Data.Email)
	assert.Equal(t, []string{}, body.Data.Groups)
	svc.AssertExpectations(t)
}

func TestGetMeWithoutUser(t *testing.T) {
	svc := new(MockService)
	w := doJSON(setupUserRouter(t, svc, uuid.Nil), http.MethodGet, "/api/v1/auth/user/", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	svc.AssertNotCalled(t, "GetUserByID", mock.Anything, mock.Anything)
}

func TestPatchMeUpdatesSubset(t *testing.T) {
	id := uuid.New()
	svc := new(MockService)
	svc.On("UpdateUser", mock.Anything, id, mock.MatchedBy(func(req UpdateUserRequest) bool {
		return req.FirstName != nil && *req.FirstName == "Grace" && req.LastName == nil
	})).Return(&shared.User{ID: id, FirstName: "Grace", LastName: "Hopper"}, nil)

	w := doJSON(setupUserRouter(t, svc, id), http.MethodPatch, "/api/v1/auth/user/", map[string]string{"first_name": "Grace"})
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestPutMeRequiresAllFields(t *testing.T) {
	id := uuid.New()
	svc := new(MockService)

	w := doJSON(setupUserRouter(t, svc, id), http.MethodPut, "/api/v1/auth/user/", map[string]string{"first_name": "Grace"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var apiErr struct {
		Details map[string]string `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
	assert.Contains(t, apiErr.Details, "last_name")
	assert.NotContains(t, apiErr.Details, "first_name")
	svc.AssertNotCalled(t, "UpdateUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestPatchMeRejectsMalformedJSON(t *testing.T) {
	id := uuid.New()
	svc := new(MockService)
	r := setupUserRouter(t, svc, id)

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/auth/user/", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
