package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/config"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/qrcode"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/qr-attendance-go/internal/repository/memory"
	attendanceService "github.com/cmlabs-hris/qr-attendance-go/internal/service/attendance"
	employeeService "github.com/cmlabs-hris/qr-attendance-go/internal/service/employee"
	reportService "github.com/cmlabs-hris/qr-attendance-go/internal/service/report"
	scanService "github.com/cmlabs-hris/qr-attendance-go/internal/service/scan"
	settingService "github.com/cmlabs-hris/qr-attendance-go/internal/service/setting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Details map[string]string `json:"details"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	return newTestRouterWith(t, nil)
}

// newTestRouterWith lets wrap replace the session repository every service sees.
func newTestRouterWith(t *testing.T, wrap func(attendance.SessionRepository) attendance.SessionRepository) http.Handler {
	t.Helper()

	store := memory.NewStore()
	tx := memory.NewTransactor(store)
	employeeRepo := memory.NewEmployeeRepository(store)
	sessionRepo := memory.NewSessionRepository(store)
	if wrap != nil {
		sessionRepo = wrap(sessionRepo)
	}
	tokenRepo := memory.NewTokenRepository(store)
	settings := settingService.NewSettingService(memory.NewSettingRepository(store), setting.Default())
	hub := sse.NewHub()

	engine := attendanceService.NewEngine(tx, sessionRepo, employeeRepo, attendance.PermissivePolicy{}, time.UTC)
	scans := scanService.NewScanService(tx, tokenRepo, employeeRepo, engine, settings, qrcode.NewDecoder(), nil, nil, hub,
		scanService.Config{TokenTTL: time.Minute, Location: time.UTC})
	employees := employeeService.NewEmployeeService(tx, employeeRepo, sessionRepo)
	reports := reportService.NewReportService(sessionRepo, employeeRepo, settings, time.UTC)

	return NewRouter(
		config.AppConfig{Env: "test", LogLevel: "error", AllowedOrigins: []string{"*"}},
		NewScanHandler(scans),
		NewEmployeeHandler(employees),
		NewReportHandler(reports),
		NewDashboardHandler(reports, hub),
		NewSettingHandler(settings),
	)
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func createEmployee(t *testing.T, h http.Handler, id, name string) {
	t.Helper()
	rec, _ := do(t, h, http.MethodPost, "/api/v1/employees",
		`{"id":"`+id+`","name":"`+name+`","position":"Engineer","department":"IT","dob":"1990-05-17"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestScanToggleOverHTTP(t *testing.T) {
	h := newTestRouter(t)
	createEmployee(t, h, "emp1", "Ana")

	body := `{"payload":"{\"employeeId\":\"emp1\"}"}`

	rec, env := do(t, h, http.MethodPost, "/api/v1/scans", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var first attendance.ScanResponse
	require.NoError(t, json.Unmarshal(env.Data, &first))
	assert.Equal(t, attendance.CheckedIn, first.Action)

	rec, env = do(t, h, http.MethodPost, "/api/v1/scans", body)
	require.Equal(t, http.StatusOK, rec.Code)
	var second attendance.ScanResponse
	require.NoError(t, json.Unmarshal(env.Data, &second))
	assert.Equal(t, attendance.CheckedOut, second.Action)
	assert.Equal(t, first.Session.ID, second.Session.ID)

	rec, env = do(t, h, http.MethodGet, "/api/v1/sessions?employee_id=emp1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var sessions []attendance.SessionResponse
	require.NoError(t, json.Unmarshal(env.Data, &sessions))
	require.Len(t, sessions, 1)
	assert.NotNil(t, sessions[0].CheckOut)
}

func TestScanErrorsOverHTTP(t *testing.T) {
	h := newTestRouter(t)

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed body", `{`, http.StatusBadRequest},
		{"missing payload", `{}`, http.StatusUnprocessableEntity},
		{"garbage payload", `{"payload":"not an id!"}`, http.StatusBadRequest},
		{"unknown employee", `{"payload":"ghost"}`, http.StatusNotFound},
		{"unknown token", `{"payload":"` + strings.Repeat("ab", 32) + `"}`, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPost, "/api/v1/scans", tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.False(t, env.Success)
		})
	}
}

func TestTokenScanOverHTTP(t *testing.T) {
	h := newTestRouter(t)
	createEmployee(t, h, "emp1", "Ana")

	rec, env := do(t, h, http.MethodPost, "/api/v1/employees/emp1/tokens", "")
	require.Equal(t, http.StatusCreated, rec.Code)
	var token attendance.TokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &token))

	body := `{"payload":"` + token.Token + `"}`
	rec, _ = do(t, h, http.MethodPost, "/api/v1/scans", body)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/scans", body)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, h, http.MethodPost, "/api/v1/employees/ghost/tokens", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScanImageOverHTTP(t *testing.T) {
	h := newTestRouter(t)
	createEmployee(t, h, "emp1", "Ana")

	qr := httptest.NewRecorder()
	h.ServeHTTP(qr, httptest.NewRequest(http.MethodGet, "/api/v1/employees/emp1/qr?size=300", nil))
	require.Equal(t, http.StatusOK, qr.Code)
	assert.Equal(t, "image/png", qr.Header().Get("Content-Type"))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("photo", "emp1.png")
	require.NoError(t, err)
	_, err = part.Write(qr.Body.Bytes())
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/scans/image", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"action":"checked_in"`)

	bad := httptest.NewRecorder()
	h.ServeHTTP(bad, httptest.NewRequest(http.MethodGet, "/api/v1/employees/emp1/qr?size=5000", nil))
	assert.Equal(t, http.StatusUnprocessableEntity, bad.Code)
}

func TestEmployeeCRUDOverHTTP(t *testing.T) {
	h := newTestRouter(t)
	createEmployee(t, h, "emp1", "Ana")

	rec, env := do(t, h, http.MethodPost, "/api/v1/employees",
		`{"id":"emp1","name":"Dup","position":"X","department":"X","dob":"1990-05-17"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "CONFLICT", env.Error.Code)

	rec, env = do(t, h, http.MethodPost, "/api/v1/employees", `{"name":"","dob":"17-05-1990"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, env.Error.Details, "name")

	rec, _ = do(t, h, http.MethodPut, "/api/v1/employees/emp1",
		`{"name":"Ana B","position":"Lead","department":"IT","dob":"1990-05-17"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodDelete, "/api/v1/employees/emp1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/employees/emp1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsOverHTTP(t *testing.T) {
	h := newTestRouter(t)

	rec, env := do(t, h, http.MethodGet, "/api/v1/settings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg setting.SettingsResponse
	require.NoError(t, json.Unmarshal(env.Data, &cfg))
	assert.True(t, cfg.IsDefault)
	assert.Equal(t, "09:00:00", cfg.OfficeStart)

	rec, _ = do(t, h, http.MethodPut, "/api/v1/settings",
		`{"office_start":"17:00","office_end":"09:00","required_daily_hours":8}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = do(t, h, http.MethodPut, "/api/v1/settings",
		`{"office_start":"9am","office_end":"17:00","required_daily_hours":8}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, env = do(t, h, http.MethodPut, "/api/v1/settings",
		`{"office_start":"08:30","office_end":"16:30","required_daily_hours":7.5}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(env.Data, &cfg))
	assert.False(t, cfg.IsDefault)
	assert.Equal(t, "08:30:00", cfg.OfficeStart)
}

func TestExportOverHTTP(t *testing.T) {
	h := newTestRouter(t)
	createEmployee(t, h, "emp1", "Ana")
	rec, _ := do(t, h, http.MethodPost, "/api/v1/scans", `{"payload":"emp1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	res := httptest.NewRecorder()
	h.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v1/reports/export?format=csv", nil))
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "text/csv", res.Header().Get("Content-Type"))
	assert.Contains(t, res.Header().Get("Content-Disposition"), "attachment;")
	assert.True(t, strings.HasPrefix(res.Body.String(), "employee_id,employee_name,date"))

	rec, _ = do(t, h, http.MethodGet, "/api/v1/reports/export?format=doc", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/reports/monthly", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/v1/dashboard", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDashboardStream(t *testing.T) {
	h := newTestRouter(t)
	createEmployee(t, h, "emp1", "Ana")

	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/v1/dashboard/stream", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	line, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "event: connected\n", line)

	rec, _ := do(t, h, http.MethodPost, "/api/v1/scans", `{"payload":"emp1"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	for {
		line, err = reader.ReadString('\n')
		require.NoError(t, err)
		if line == "event: scan\n" {
			break
		}
	}
	data, err := reader.ReadString('\n')
	require.NoError(t, err)
	assert.Contains(t, data, `"action":"checked_in"`)
}

type unavailableSessions struct {
	attendance.SessionRepository
	calls atomic.Int32
}

func (u *unavailableSessions) down() error {
	u.calls.Add(1)
	return fmt.Errorf("%w: dial tcp 10.0.0.5:5432: connect: connection refused", attendance.ErrStoreUnavailable)
}

func (u *unavailableSessions) Query(context.Context, attendance.SessionFilter) ([]attendance.Session, error) {
	return nil, u.down()
}

func (u *unavailableSessions) FindLatestForDay(context.Context, string, time.Time) (*attendance.Session, error) {
	return nil, u.down()
}

func TestStoreUnavailableOverHTTP(t *testing.T) {
	sessions := &unavailableSessions{}
	h := newTestRouterWith(t, func(repo attendance.SessionRepository) attendance.SessionRepository {
		sessions.SessionRepository = repo
		return sessions
	})
	createEmployee(t, h, "emp1", "Ana")

	rec, env := do(t, h, http.MethodGet, "/api/v1/sessions", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	require.NotNil(t, env.Error)
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)
	assert.NotContains(t, env.Error.Message, "10.0.0.5")
	assert.Equal(t, int32(1), sessions.calls.Load())

	rec, env = do(t, h, http.MethodPost, "/api/v1/scans", `{"payload":"emp1"}`)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	assert.Equal(t, "SERVICE_UNAVAILABLE", env.Error.Code)
	assert.Equal(t, int32(2), sessions.calls.Load())
}
