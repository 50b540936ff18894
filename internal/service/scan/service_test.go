package scan

import (
	"bytes"
	"context"
	"errors"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/geoip"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/qrcode"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/validator"
	"github.com/cmlabs-hris/qr-attendance-go/internal/repository/memory"
	attendanceService "github.com/cmlabs-hris/qr-attendance-go/internal/service/attendance"
	settingService "github.com/cmlabs-hris/qr-attendance-go/internal/service/setting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 3, 3, 9, 30, 1, 0, time.UTC)

type fakeGeo struct {
	res geoip.Result
	err error
}

func (f fakeGeo) Lookup(context.Context, string) (geoip.Result, error) { return f.res, f.err }

type fakeNotifier struct {
	mu     sync.Mutex
	alerts [][]string
	err    error
	hold   chan struct{}
}

func (f *fakeNotifier) NotifyScanAlert(ctx context.Context, _ attendance.SessionAction, _ attendance.Session, alerts []string, _ setting.Configuration) error {
	if f.hold != nil {
		select {
		case <-f.hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alerts = append(f.alerts, alerts)
	return f.err
}

func (f *fakeNotifier) delivered(t *testing.T, n int) [][]string {
	t.Helper()
	require.Eventually(t, func() bool {
		f.mu.Lock()
		defer f.mu.Unlock()
		return len(f.alerts) >= n
	}, time.Second, 5*time.Millisecond)
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.alerts...)
}

type fixture struct {
	svc      *ScanServiceImpl
	store    *memory.Store
	sessions attendance.SessionRepository
	notifier *fakeNotifier
	hub      *sse.Hub
}

type options struct {
	cfg    Config
	policy attendance.ScanPolicy
	geo    GeoLocator
}

func newFixture(t *testing.T, opts options) fixture {
	t.Helper()
	store := memory.NewStore()
	tx := memory.NewTransactor(store)
	employees := memory.NewEmployeeRepository(store)
	sessions := memory.NewSessionRepository(store)
	_, err := employees.Create(context.Background(), employee.Employee{ID: "emp1", Name: "Ana", DOB: now.AddDate(-30, 0, 0)})
	require.NoError(t, err)

	if opts.cfg.Location == nil {
		opts.cfg.Location = time.UTC
	}
	engine := attendanceService.NewEngine(tx, sessions, employees, opts.policy, opts.cfg.Location)
	settings := settingService.NewSettingService(memory.NewSettingRepository(store), setting.Default())
	notifier := &fakeNotifier{}
	hub := sse.NewHub()

	svc := NewScanService(tx, memory.NewTokenRepository(store), employees, engine, settings,
		qrcode.NewDecoder(), opts.geo, notifier, hub, opts.cfg)
	svc.now = func() time.Time { return now }

	return fixture{svc: svc, store: store, sessions: sessions, notifier: notifier, hub: hub}
}

func (f fixture) sessionsSnapshot(t *testing.T) []attendance.Session {
	t.Helper()
	all, err := f.sessions.Query(context.Background(), attendance.SessionFilter{})
	require.NoError(t, err)
	return all
}

func at(clock string) *string {
	s := "2025-03-03T" + clock + "Z"
	return &s
}

func TestScan_PlainAndStructuredToggle(t *testing.T) {
	f := newFixture(t, options{})
	ctx := context.Background()

	resp, err := f.svc.Scan(ctx, attendance.ScanRequest{Payload: "emp1", ScannedAt: at("09:00:00")})
	require.NoError(t, err)
	assert.Equal(t, attendance.CheckedIn, resp.Action)
	assert.Equal(t, "Check-in recorded for Ana at 09:00:00", resp.Message)
	assert.False(t, resp.Session.IsLate)

	resp, err = f.svc.Scan(ctx, attendance.ScanRequest{Payload: `{"employeeId": "emp1"}`, ScannedAt: at("17:30:00")})
	require.NoError(t, err)
	assert.Equal(t, attendance.CheckedOut, resp.Action)
	assert.Equal(t, 8.5, resp.Session.HoursWorked)
	assert.True(t, resp.Session.IsOvertime)
	assert.Empty(t, resp.Session.Alerts)
}

func TestScan_FailuresLeaveStateUnchanged(t *testing.T) {
	f := newFixture(t, options{})
	ctx := context.Background()

	_, err := f.svc.Scan(ctx, attendance.ScanRequest{Payload: "emp1", ScannedAt: at("09:00:00")})
	require.NoError(t, err)
	before := f.sessionsSnapshot(t)

	_, err = f.svc.Scan(ctx, attendance.ScanRequest{Payload: `{"name": "Ana"}`})
	assert.ErrorIs(t, err, attendance.ErrInvalidPayload)

	_, err = f.svc.Scan(ctx, attendance.ScanRequest{Payload: "ghost"})
	assert.ErrorIs(t, err, attendance.ErrUnknownEmployee)

	_, err = f.svc.Scan(ctx, attendance.ScanRequest{Payload: "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08"})
	assert.ErrorIs(t, err, attendance.ErrExpiredOrUnknownToken)

	_, err = f.svc.Scan(ctx, attendance.ScanRequest{Payload: ""})
	var ve validator.ValidationErrors
	assert.ErrorAs(t, err, &ve)

	assert.Equal(t, before, f.sessionsSnapshot(t))
}

func TestScan_TokenReplay(t *testing.T) {
	f := newFixture(t, options{cfg: Config{TokenTTL: time.Minute}})
	ctx := context.Background()

	issued, err := f.svc.IssueToken(ctx, "emp1")
	require.NoError(t, err)
	assert.Len(t, issued.Token, 64)
	assert.NotEmpty(t, issued.QRCodePNG)
	assert.Equal(t, now.Add(time.Minute).Format(time.RFC3339), issued.ExpiresAt)

	resp, err := f.svc.Scan(ctx, attendance.ScanRequest{Payload: issued.Token})
	require.NoError(t, err)
	assert.Equal(t, attendance.CheckedIn, resp.Action)
	assert.Equal(t, "emp1", resp.Session.EmployeeID)

	_, err = f.svc.Scan(ctx, attendance.ScanRequest{Payload: issued.Token})
	assert.ErrorIs(t, err, attendance.ErrExpiredOrUnknownToken)
	assert.Len(t, f.sessionsSnapshot(t), 1)
}

func TestScan_ExpiredToken(t *testing.T) {
	f := newFixture(t, options{cfg: Config{TokenTTL: time.Minute}})
	ctx := context.Background()

	issued, err := f.svc.IssueToken(ctx, "emp1")
	require.NoError(t, err)

	f.svc.now = func() time.Time { return now.Add(time.Minute) }
	_, err = f.svc.Scan(ctx, attendance.ScanRequest{Payload: issued.Token})
	assert.ErrorIs(t, err, attendance.ErrExpiredOrUnknownToken)
}

func TestScan_FailedRecordDoesNotBurnToken(t *testing.T) {
	f := newFixture(t, options{policy: attendance.StrictChronologyPolicy{}})
	ctx := context.Background()

	_, err := f.svc.Scan(ctx, attendance.ScanRequest{Payload: "emp1", ScannedAt: at("10:00:00")})
	require.NoError(t, err)

	issued, err := f.svc.IssueToken(ctx, "emp1")
	require.NoError(t, err)

	_, err = f.svc.Scan(ctx, attendance.ScanRequest{Payload: issued.Token, ScannedAt: at("09:00:00")})
	assert.ErrorIs(t, err, attendance.ErrOutOfOrderScan)

	resp, err := f.svc.Scan(ctx, attendance.ScanRequest{Payload: issued.Token, ScannedAt: at("11:00:00")})
	require.NoError(t, err)
	assert.Equal(t, attendance.CheckedOut, resp.Action)
}

func TestScan_RequireToken(t *testing.T) {
	f := newFixture(t, options{cfg: Config{RequireToken: true}})

	_, err := f.svc.Scan(context.Background(), attendance.ScanRequest{Payload: "emp1"})
	assert.ErrorIs(t, err, attendance.ErrInvalidPayload)
	assert.Empty(t, f.sessionsSnapshot(t))
}

func TestIssueToken_UnknownEmployee(t *testing.T) {
	f := newFixture(t, options{})
	_, err := f.svc.IssueToken(context.Background(), "ghost")
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
}

func TestScan_LateCheckInNotifiesAndPublishes(t *testing.T) {
	f := newFixture(t, options{})
	events, cleanup := f.hub.Subscribe(sse.TopicDashboard)
	defer cleanup()

	resp, err := f.svc.Scan(context.Background(), attendance.ScanRequest{Payload: "emp1"})
	require.NoError(t, err)
	assert.True(t, resp.Session.IsLate)
	assert.Equal(t, [][]string{{attendance.AlertLateArrival}}, f.notifier.delivered(t, 1))

	ev := <-events
	assert.Equal(t, "scan", ev.Event)
	assert.Equal(t, resp, ev.Data)
}

func TestScan_DeliveryFailureIsSwallowed(t *testing.T) {
	f := newFixture(t, options{})
	f.notifier.err = attendance.ErrDeliveryFailure

	resp, err := f.svc.Scan(context.Background(), attendance.ScanRequest{Payload: "emp1"})
	require.NoError(t, err)
	assert.Equal(t, attendance.CheckedIn, resp.Action)
	assert.Len(t, f.notifier.delivered(t, 1), 1)
}

func TestScan_SlowNotifierDoesNotDelayResponse(t *testing.T) {
	f := newFixture(t, options{})
	f.notifier.hold = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())

	start := time.Now()
	resp, err := f.svc.Scan(ctx, attendance.ScanRequest{Payload: "emp1"})
	require.NoError(t, err)
	assert.True(t, resp.Session.IsLate)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	// The alert outlives the request context.
	cancel()
	close(f.notifier.hold)
	assert.Equal(t, [][]string{{attendance.AlertLateArrival}}, f.notifier.delivered(t, 1))
}

func TestScan_GeoTagging(t *testing.T) {
	lat, lon := -6.2001, 106.8167
	officeLat, officeLon := -6.2000, 106.8166
	f := newFixture(t, options{
		geo: fakeGeo{res: geoip.Result{IP: "203.0.113.7", City: "Jakarta", Country: "Indonesia", Latitude: &lat, Longitude: &lon}},
		cfg: Config{OfficeLatitude: &officeLat, OfficeLongitude: &officeLon},
	})

	resp, err := f.svc.Scan(context.Background(), attendance.ScanRequest{Payload: "emp1", ClientIP: "203.0.113.7"})
	require.NoError(t, err)
	loc := resp.Session.CheckInLocation
	require.NotNil(t, loc)
	assert.Equal(t, "Jakarta", loc.City)
	require.NotNil(t, loc.DistanceMeters)
	assert.InDelta(t, 15.7, *loc.DistanceMeters, 1)
}

func TestScan_GeoFailureStillRecords(t *testing.T) {
	f := newFixture(t, options{geo: fakeGeo{err: errors.New("rate limited")}})

	resp, err := f.svc.Scan(context.Background(), attendance.ScanRequest{Payload: "emp1", ClientIP: "203.0.113.7"})
	require.NoError(t, err)
	require.NotNil(t, resp.Session.CheckInLocation)
	assert.Equal(t, "203.0.113.7", resp.Session.CheckInLocation.IP)
	assert.Empty(t, resp.Session.CheckInLocation.City)
}

type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func imageRequest(t *testing.T, content []byte, name string) attendance.ScanImageRequest {
	t.Helper()
	return attendance.ScanImageRequest{
		File:       memFile{bytes.NewReader(content)},
		FileHeader: &multipart.FileHeader{Filename: name, Size: int64(len(content))},
	}
}

func TestScanImage(t *testing.T) {
	f := newFixture(t, options{})
	png, err := qrcode.Encode(attendance.EncodeEmployeePayload("emp1"), 256)
	require.NoError(t, err)

	resp, err := f.svc.ScanImage(context.Background(), imageRequest(t, png, "badge.png"))
	require.NoError(t, err)
	assert.Equal(t, attendance.CheckedIn, resp.Action)
}

func TestScanImage_DecodeFailure(t *testing.T) {
	f := newFixture(t, options{})

	_, err := f.svc.ScanImage(context.Background(), imageRequest(t, []byte("not an image"), "badge.png"))
	assert.ErrorIs(t, err, attendance.ErrDecodeFailure)
	assert.Empty(t, f.sessionsSnapshot(t))

	_, err = f.svc.ScanImage(context.Background(), imageRequest(t, []byte("x"), "badge.gif"))
	var ve validator.ValidationErrors
	assert.ErrorAs(t, err, &ve)
}
