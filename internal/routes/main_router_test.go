package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"field-dispatch/internal/dto"
	"field-dispatch/internal/entities"
	"field-dispatch/internal/services"
	"field-dispatch/pkg/config"
	apperrors "field-dispatch/pkg/errors"
	"field-dispatch/pkg/service"
	"field-dispatch/pkg/types"
	"field-dispatch/pkg/utils"
	"field-dispatch/pkg/validation"
	"field-dispatch/pkg/websocket"
)

type stubAuth struct {
	services.AuthServiceInterface
	users map[string]*entities.User
}

func (s *stubAuth) Register(ctx context.Context, payload dto.RegisterDTO) (*entities.User, error) {
	if _, ok := s.users[payload.Email]; ok {
		return nil, apperrors.ErrConflict
	}
	u := &entities.User{ID: uuid.New(), Name: payload.Name, Email: payload.Email, Role: entities.RoleTechnician}
	s.users[payload.Email] = u
	return u, nil
}

func (s *stubAuth) Login(ctx context.Context, payload dto.LoginDTO) (*entities.User, error) {
	u, ok := s.users[payload.Email]
	if !ok || payload.Password != "secret1" {
		return nil, apperrors.ErrInvalidCredentials
	}
	return u, nil
}

func (s *stubAuth) GetUserByID(ctx context.Context, id uuid.UUID) (*entities.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

type stubTasks struct {
	services.TaskServiceInterface
	mu         sync.Mutex
	lastFilter types.Filter
	lastActor  utils.Actor
	acceptErr  error
}

func (s *stubTasks) CreateTask(ctx context.Context, actor utils.Actor, payload dto.CreateTaskDTO) (*dto.CreateTaskResultDTO, error) {
	s.mu.Lock()
	s.lastActor = actor
	s.mu.Unlock()
	return &dto.CreateTaskResultDTO{
		Task:     dto.TaskDTO{ID: uuid.New(), CustomerName: payload.CustomerName, Status: string(entities.TaskStatusPending)},
		Dispatch: dto.DispatchResultDTO{Status: dto.DispatchStatusNoChannel},
	}, nil
}

func (s *stubTasks) ListTasks(ctx context.Context, actor utils.Actor, filter types.Filter) ([]dto.TaskDTO, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastFilter = filter
	s.lastActor = actor
	return []dto.TaskDTO{}, 0, nil
}

func (s *stubTasks) AcceptTask(ctx context.Context, actor utils.Actor, id uuid.UUID) (*dto.TaskDTO, error) {
	if s.acceptErr != nil {
		return nil, s.acceptErr
	}
	return &dto.TaskDTO{ID: id, Status: string(entities.TaskStatusAccepted)}, nil
}

type stubLocations struct {
	services.LocationServiceInterface
}

func (s *stubLocations) RecordLocation(ctx context.Context, actor utils.Actor, payload dto.RecordLocationDTO) (*dto.LocationSampleDTO, error) {
	return &dto.LocationSampleDTO{ID: uuid.New(), UserID: actor.UserID, Latitude: *payload.Latitude, Longitude: *payload.Longitude}, nil
}

type stubNotifications struct {
	services.NotificationServiceInterface
}

func (s *stubNotifications) UnreadCount(ctx context.Context, recipientID uuid.UUID) (*dto.UnreadCountDTO, error) {
	return &dto.UnreadCountDTO{Count: 3}, nil
}

type stubDispatch struct {
	services.DispatchServiceInterface
}

func (s *stubDispatch) Redispatch(ctx context.Context, taskID uuid.UUID) (*dto.DispatchResultDTO, error) {
	return &dto.DispatchResultDTO{Status: dto.DispatchStatusNoChannel}, apperrors.ErrNoChannelConfigured
}

type stubReport struct {
	services.ReportServiceInterface
}

func (s *stubReport) TaskReport(ctx context.Context, filter types.Filter) (*dto.TaskReportDTO, error) {
	rating := 5
	return &dto.TaskReportDTO{
		Tasks: []dto.TaskReportRowDTO{{
			TaskID:       uuid.New(),
			CreatedAt:    time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
			CustomerName: "Jane Roe",
			Technician:   "Sam Tech",
			Status:       string(entities.TaskStatusCompleted),
			Rating:       &rating,
		}},
		Technicians: []dto.TechnicianRatingRowDTO{{TechnicianID: uuid.New(), Name: "Sam Tech", Completed: 1, Rated: 1, Average: 5}},
	}, nil
}

type RouterTestSuite struct {
	suite.Suite
	Echo       *echo.Echo
	JWT        service.JWTService
	Auth       *stubAuth
	Tasks      *stubTasks
	AdminToken string
	TechToken  string
	TechID     uuid.UUID
}

func (s *RouterTestSuite) SetupTest() {
	e := echo.New()
	e.Validator = validation.New()

	nop := zap.NewNop()
	loggers := &Loggers{Main: nop, Auth: nop, Task: nop, Location: nop, Notification: nop}
	cfg := &config.Config{RateLimit: config.RateLimitConfig{LocationPerSecond: 0.001, LocationBurst: 1}}

	s.JWT = service.NewJWTService("test-secret", time.Hour, 2*time.Hour, nop)
	s.Auth = &stubAuth{users: make(map[string]*entities.User)}
	s.Tasks = &stubTasks{}

	svcs := &Services{
		Auth:         s.Auth,
		Task:         s.Tasks,
		Location:     &stubLocations{},
		Notification: &stubNotifications{},
		Dispatch:     &stubDispatch{},
		Report:       &stubReport{},
	}
	InitRouter(e, svcs, s.JWT, websocket.NewHub(nop), loggers, cfg)
	s.Echo = e

	var err error
	s.AdminToken, _, err = s.JWT.GenerateTokens(uuid.New(), entities.RoleAdmin)
	s.Require().NoError(err)
	s.TechID = uuid.New()
	s.TechToken, _, err = s.JWT.GenerateTokens(s.TechID, entities.RoleTechnician)
	s.Require().NoError(err)
}

func (s *RouterTestSuite) do(method, target, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (s *RouterTestSuite) TestRegisterLoginAndMe() {
	t := s.T()

	rec := s.do(http.MethodPost, "/api/auth/register", "", dto.RegisterDTO{Name: "Sam", Email: "sam@example.com", Password: "secret1"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	env := decodeEnvelope(t, rec)
	body := env["body"].(map[string]interface{})
	assert.NotEmpty(t, body["token"])
	assert.NotEmpty(t, body["refresh_token"])
	assert.Equal(t, "sam@example.com", body["user"].(map[string]interface{})["email"])

	rec = s.do(http.MethodPost, "/api/auth/register", "", dto.RegisterDTO{Name: "Sam", Email: "sam@example.com", Password: "secret1"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/login", "", dto.LoginDTO{Email: "sam@example.com", Password: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/login", "", dto.LoginDTO{Email: "sam@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := decodeEnvelope(t, rec)["body"].(map[string]interface{})["token"].(string)

	var refreshCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "refreshToken" {
			refreshCookie = c
		}
	}
	require.NotNil(t, refreshCookie)
	assert.True(t, refreshCookie.HttpOnly)

	rec = s.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Sam", decodeEnvelope(t, rec)["body"].(map[string]interface{})["name"])

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh_token", nil)
	req.AddCookie(refreshCookie)
	refreshed := httptest.NewRecorder()
	s.Echo.ServeHTTP(refreshed, req)
	assert.Equal(t, http.StatusOK, refreshed.Code, refreshed.Body.String())
}

func (s *RouterTestSuite) TestRefreshRejectsAccessToken() {
	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh_token", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: s.AdminToken})
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *RouterTestSuite) TestRegisterValidation() {
	rec := s.do(http.MethodPost, "/api/auth/register", "", dto.RegisterDTO{Name: " ", Email: "not-an-email", Password: "1"})
	s.Equal(http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(s.T(), rec)
	details, ok := env["body"].(map[string]interface{})
	s.Require().True(ok, rec.Body.String())
	s.Contains(details, "Email")
	s.Contains(details, "Password")
}

func (s *RouterTestSuite) TestAuthIsRequired() {
	rec := s.do(http.MethodGet, "/api/tasks", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	_, refresh, err := s.JWT.GenerateTokens(uuid.New(), entities.RoleAdmin)
	s.Require().NoError(err)
	rec = s.do(http.MethodGet, "/api/tasks", refresh, nil)
	s.Equal(http.StatusUnauthorized, rec.Code, "refresh tokens are not access tokens")
}

func (s *RouterTestSuite) TestRoleGuards() {
	payload := dto.CreateTaskDTO{
		CustomerName:     "Jane Roe",
		CustomerPhone:    "+1 555 010 2030",
		CustomerAddress:  "12 Elm St",
		IssueDescription: "Boiler noise",
		AssignedTo:       uuid.NewString(),
	}

	rec := s.do(http.MethodPost, "/api/tasks", s.TechToken, payload)
	s.Equal(http.StatusForbidden, rec.Code, "technicians cannot create tasks")

	rec = s.do(http.MethodPost, "/api/tasks", s.AdminToken, payload)
	s.Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.Equal(entities.RoleAdmin, s.Tasks.lastActor.Role)

	rec = s.do(http.MethodPatch, "/api/tasks/"+uuid.NewString()+"/accept", s.AdminToken, nil)
	s.Equal(http.StatusForbidden, rec.Code, "admins cannot accept tasks")

	rec = s.do(http.MethodGet, "/api/technicians", s.TechToken, nil)
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/api/broadcast", s.TechToken, dto.BroadcastDTO{Message: "hi", TechnicianIDs: []string{uuid.NewString()}})
	s.Equal(http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/reports/tasks.xlsx", s.TechToken, nil)
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *RouterTestSuite) TestCreateTaskValidation() {
	rec := s.do(http.MethodPost, "/api/tasks", s.AdminToken, dto.CreateTaskDTO{CustomerName: "Jane", AssignedTo: "nope"})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "AssignedTo")
}

func (s *RouterTestSuite) TestListTasksFilters() {
	techID := uuid.NewString()
	rec := s.do(http.MethodGet, "/api/tasks?status=pending,accepted&assigned_to="+techID+"&search=Elm", s.AdminToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal("pending,accepted", s.Tasks.lastFilter.Filter["status"])
	s.Equal(techID, s.Tasks.lastFilter.Filter["assigned_to"])
	s.Equal("Elm", s.Tasks.lastFilter.Search)

	rec = s.do(http.MethodGet, "/api/tasks?status=archived", s.AdminToken, nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/tasks?assigned_to=42", s.AdminToken, nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterTestSuite) TestDomainErrorsMapToStatus() {
	s.Tasks.acceptErr = apperrors.ErrInvalidTransition
	rec := s.do(http.MethodPatch, "/api/tasks/"+uuid.NewString()+"/accept", s.TechToken, nil)
	s.Equal(http.StatusConflict, rec.Code)

	s.Tasks.acceptErr = apperrors.ErrForbidden
	rec = s.do(http.MethodPatch, "/api/tasks/"+uuid.NewString()+"/accept", s.TechToken, nil)
	s.Equal(http.StatusForbidden, rec.Code)

	s.Tasks.acceptErr = apperrors.ErrNotFound
	rec = s.do(http.MethodPatch, "/api/tasks/"+uuid.NewString()+"/accept", s.TechToken, nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPatch, "/api/tasks/not-a-uuid/accept", s.TechToken, nil)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/tasks/"+uuid.NewString()+"/dispatch", s.AdminToken, nil)
	s.Equal(http.StatusUnprocessableEntity, rec.Code)
}

func (s *RouterTestSuite) TestLocationRateLimit() {
	lat, lng := 38.56, 68.77
	payload := dto.RecordLocationDTO{TaskID: uuid.NewString(), Latitude: &lat, Longitude: &lng}

	rec := s.do(http.MethodPost, "/api/locations", s.TechToken, payload)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/locations", s.TechToken, payload)
	s.Equal(http.StatusTooManyRequests, rec.Code)

	otherAccess, _, err := s.JWT.GenerateTokens(uuid.New(), entities.RoleTechnician)
	s.Require().NoError(err)
	rec = s.do(http.MethodPost, "/api/locations", otherAccess, payload)
	s.Equal(http.StatusCreated, rec.Code, "buckets are per technician")
}

func (s *RouterTestSuite) TestLocationValidation() {
	lat, lng := 91.0, 10.0
	rec := s.do(http.MethodPost, "/api/locations", s.TechToken, dto.RecordLocationDTO{TaskID: uuid.NewString(), Latitude: &lat, Longitude: &lng})
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "Latitude")
}

func (s *RouterTestSuite) TestUnreadCount() {
	rec := s.do(http.MethodGet, "/api/notifications/unread/count", s.TechToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	body := decodeEnvelope(s.T(), rec)["body"].(map[string]interface{})
	s.Equal(float64(3), body["count"])
}

func (s *RouterTestSuite) TestTaskReportExport() {
	rec := s.do(http.MethodGet, "/api/reports/tasks.xlsx", s.AdminToken, nil)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.True(strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), "application/vnd.openxmlformats"))
	s.Contains(rec.Header().Get(echo.HeaderContentDisposition), "attachment")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	s.Require().NoError(err)
	defer f.Close()

	s.Equal([]string{"Tasks", "Technicians"}, f.GetSheetList())
	customer, err := f.GetCellValue("Tasks", "C2")
	s.Require().NoError(err)
	s.Equal("Jane Roe", customer)
	rating, err := f.GetCellValue("Tasks", "O2")
	s.Require().NoError(err)
	s.Equal("5", rating)
	name, err := f.GetCellValue("Technicians", "B2")
	s.Require().NoError(err)
	s.Equal("Sam Tech", name)
}

func (s *RouterTestSuite) TestWebSocketRequiresToken() {
	rec := s.do(http.MethodGet, "/api/ws", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/ws?token=garbage", "", nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterTestSuite))
}
