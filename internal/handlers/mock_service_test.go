package handlers

import (
	"context"
	"net/http"

	"devsecops_api/internal/models"
	"devsecops_api/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	registerID  int64
	registerErr error
	loginRes    service.LoginResult
	loginErr    error
	parseID     int64
	parseErr    error

	lastRegister   service.RegisterInput
	lastLoginEmail string
	lastLoginPass  string
	lastParseToken string
}

func (m *mockAuth) Register(ctx context.Context, in service.RegisterInput) (int64, error) {
	m.lastRegister = in
	return m.registerID, m.registerErr
}
func (m *mockAuth) Login(ctx context.Context, email, password string) (service.LoginResult, error) {
	m.lastLoginEmail = email
	m.lastLoginPass = password
	return m.loginRes, m.loginErr
}
func (m *mockAuth) ParseToken(token string) (int64, error) {
	m.lastParseToken = token
	return m.parseID, m.parseErr
}

type mockProfile struct {
	user      models.User
	getErr    error
	updateErr error
	users     []models.User
	listErr   error
	panicOn   string

	lastGetID      int64
	lastUpdateID   int64
	lastUpdateName *string
	updateCalls    int
}

func (m *mockProfile) GetProfile(ctx context.Context, id int64) (models.User, error) {
	if m.panicOn == "get" {
		panic("profile store exploded")
	}
	m.lastGetID = id
	return m.user, m.getErr
}
func (m *mockProfile) UpdateProfile(ctx context.Context, id int64, username *string) (models.User, error) {
	m.updateCalls++
	m.lastUpdateID = id
	m.lastUpdateName = username
	if m.updateErr != nil {
		return models.User{}, m.updateErr
	}
	u := m.user
	if username != nil {
		u.Username = *username
	}
	return u, nil
}
func (m *mockProfile) ListUsers(ctx context.Context) ([]models.User, error) {
	return m.users, m.listErr
}

type recordedActivity struct {
	userID int64
	typ    string
	meta   map[string]any
}

type mockActivity struct {
	events    []models.Event
	listErr   error
	recordErr error

	recorded   []recordedActivity
	lastUserID int64
	lastFilter service.ActivityFilter
}

func (m *mockActivity) Record(ctx context.Context, userID int64, typ, description string, meta map[string]any) error {
	m.recorded = append(m.recorded, recordedActivity{userID: userID, typ: typ, meta: meta})
	return m.recordErr
}
func (m *mockActivity) List(ctx context.Context, userID int64, f service.ActivityFilter) ([]models.Event, error) {
	m.lastUserID = userID
	m.lastFilter = f
	return m.events, m.listErr
}

type mockHealth struct {
	err error
}

func (m *mockHealth) Ping(ctx context.Context) error { return m.err }

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, opts ...Options) *gin.Engine {
	var o Options
	if len(opts) > 0 {
		o = opts[0]
	}
	h := NewHandler(s, nil, o)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
