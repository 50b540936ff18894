package scan

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/transaction"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/geoip"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/qrcode"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/utils"
	"github.com/google/uuid"
)

const alertTimeout = 30 * time.Second

// GeoLocator resolves a caller IP to a location.
type GeoLocator interface {
	Lookup(ctx context.Context, ip string) (geoip.Result, error)
}

// Config holds scan path settings
type Config struct {
	RequireToken    bool
	TokenTTL        time.Duration
	OfficeLatitude  *float64
	OfficeLongitude *float64
	Location        *time.Location // calendar of the office, used for derived facts
}

type ScanServiceImpl struct {
	transaction.Transactor
	attendance.TokenRepository
	employee.EmployeeRepository
	engine   attendance.Engine
	settings setting.SettingService
	decoder  attendance.Decoder
	geo      GeoLocator
	notifier attendance.Notifier
	hub      *sse.Hub
	cfg      Config
	now      func() time.Time
}

// NewScanService wires the scan path. geo, notifier and hub are optional.
func NewScanService(
	tx transaction.Transactor,
	tokenRepo attendance.TokenRepository,
	employeeRepo employee.EmployeeRepository,
	engine attendance.Engine,
	settingService setting.SettingService,
	decoder attendance.Decoder,
	geo GeoLocator,
	notifier attendance.Notifier,
	hub *sse.Hub,
	cfg Config,
) *ScanServiceImpl {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 5 * time.Minute
	}
	return &ScanServiceImpl{
		Transactor:         tx,
		TokenRepository:    tokenRepo,
		EmployeeRepository: employeeRepo,
		engine:             engine,
		settings:           settingService,
		decoder:            decoder,
		geo:                geo,
		notifier:           notifier,
		hub:                hub,
		cfg:                cfg,
		now:                time.Now,
	}
}

// Ingest resolves a raw payload into a ScanEvent. A token payload is consumed
// here, so callers must run Ingest and RecordScan in the same transaction.
func (s *ScanServiceImpl) Ingest(ctx context.Context, raw string, at time.Time, loc *attendance.Location) (attendance.ScanEvent, error) {
	payload, err := attendance.ParsePayload(raw)
	if err != nil {
		return attendance.ScanEvent{}, err
	}

	if s.cfg.RequireToken && payload.Kind() != attendance.PayloadToken {
		return attendance.ScanEvent{}, fmt.Errorf("%w: a one-time token is required", attendance.ErrInvalidPayload)
	}

	event := attendance.ScanEvent{
		At:       at,
		Raw:      raw,
		Kind:     payload.Kind(),
		Location: loc,
	}

	switch p := payload.(type) {
	case attendance.TokenPayload:
		token, err := s.TokenRepository.Consume(ctx, p.Token, s.now())
		if err != nil {
			return attendance.ScanEvent{}, err
		}
		event.EmployeeID = token.EmployeeID
	case attendance.StructuredPayload:
		event.EmployeeID = p.EmployeeID
	case attendance.PlainPayload:
		event.EmployeeID = p.EmployeeID
	}

	return event, nil
}

// Scan implements attendance.ScanService.
func (s *ScanServiceImpl) Scan(ctx context.Context, req attendance.ScanRequest) (attendance.ScanResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.ScanResponse{}, err
	}

	at := s.now()
	if req.ScannedAt != nil && *req.ScannedAt != "" {
		at, _ = time.Parse(time.RFC3339Nano, *req.ScannedAt)
	}

	return s.process(ctx, req.Payload, at, req.ClientIP)
}

// ScanImage implements attendance.ScanService.
func (s *ScanServiceImpl) ScanImage(ctx context.Context, req attendance.ScanImageRequest) (attendance.ScanResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.ScanResponse{}, err
	}
	defer req.File.Close()

	raw, err := s.decoder.Decode(req.File)
	if err != nil {
		return attendance.ScanResponse{}, fmt.Errorf("%w: %v", attendance.ErrDecodeFailure, err)
	}

	return s.process(ctx, raw, s.now(), req.ClientIP)
}

func (s *ScanServiceImpl) process(ctx context.Context, raw string, at time.Time, clientIP string) (attendance.ScanResponse, error) {
	loc := s.locate(ctx, clientIP)

	var action attendance.SessionAction
	var session attendance.Session
	err := s.WithinTransaction(ctx, func(ctx context.Context) error {
		event, err := s.Ingest(ctx, raw, at, loc)
		if err != nil {
			return err
		}
		action, session, err = s.engine.RecordScan(ctx, event)
		return err
	})
	if err != nil {
		slog.WarnContext(ctx, "scan rejected", "error", err)
		return attendance.ScanResponse{}, err
	}

	cfg, err := s.settings.Get(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load office settings, using defaults", "error", err)
		cfg = setting.Default()
	}

	local := session.In(s.cfg.Location)
	resp := attendance.ScanResponse{
		Action:  action,
		Message: scanMessage(action, local),
		Session: attendance.NewSessionResponse(local, cfg),
	}

	slog.InfoContext(ctx, "scan recorded",
		"employee_id", session.EmployeeID,
		"action", string(action),
		"session_id", session.ID,
	)

	s.alert(ctx, action, local, cfg)
	if s.hub != nil {
		if dropped := s.hub.Publish(sse.TopicDashboard, sse.Event{Event: "scan", Data: resp}); dropped > 0 {
			slog.WarnContext(ctx, "dashboard subscribers dropped scan event", "dropped", dropped)
		}
	}

	return resp, nil
}

// locate tags the scan with the caller's location. Failures leave it empty.
func (s *ScanServiceImpl) locate(ctx context.Context, clientIP string) *attendance.Location {
	if s.geo == nil {
		if clientIP == "" {
			return nil
		}
		return &attendance.Location{IP: clientIP}
	}

	res, err := s.geo.Lookup(ctx, clientIP)
	if err != nil {
		slog.WarnContext(ctx, "geo lookup failed", "ip", clientIP, "error", err)
		if clientIP == "" {
			return nil
		}
		return &attendance.Location{IP: clientIP}
	}

	loc := &attendance.Location{
		IP:        res.IP,
		City:      res.City,
		Region:    res.Region,
		Country:   res.Country,
		Latitude:  res.Latitude,
		Longitude: res.Longitude,
	}
	if loc.IP == "" {
		loc.IP = clientIP
	}
	if loc.Latitude != nil && loc.Longitude != nil && s.cfg.OfficeLatitude != nil && s.cfg.OfficeLongitude != nil {
		d := utils.CalculateHaversineDistance(*s.cfg.OfficeLatitude, *s.cfg.OfficeLongitude, *loc.Latitude, *loc.Longitude)
		loc.DistanceMeters = &d
	}
	return loc
}

// alert notifies on a late check-in or an early check-out in the background.
// Delivery failures are logged only.
func (s *ScanServiceImpl) alert(ctx context.Context, action attendance.SessionAction, session attendance.Session, cfg setting.Configuration) {
	if s.notifier == nil {
		return
	}

	var alerts []string
	switch action {
	case attendance.CheckedIn:
		if attendance.IsLate(session, cfg) {
			alerts = append(alerts, attendance.AlertLateArrival)
		}
	case attendance.CheckedOut:
		if attendance.IsEarlyExit(session, cfg) {
			alerts = append(alerts, attendance.AlertEarlyExit)
		}
	}
	if len(alerts) == 0 {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), alertTimeout)
		defer cancel()
		if err := s.notifier.NotifyScanAlert(ctx, action, session, alerts, cfg); err != nil {
			slog.WarnContext(ctx, "attendance alert not delivered",
				"employee_id", session.EmployeeID,
				"error", err,
			)
		}
	}()
}

func scanMessage(action attendance.SessionAction, session attendance.Session) string {
	name := session.EmployeeID
	if session.EmployeeName != nil {
		name = *session.EmployeeName
	}
	if action == attendance.CheckedOut && session.CheckOut != nil {
		return fmt.Sprintf("Check-out recorded for %s at %s", name, session.CheckOut.Format("15:04:05"))
	}
	return fmt.Sprintf("Check-in recorded for %s at %s", name, session.CheckIn.Format("15:04:05"))
}

// IssueToken implements attendance.ScanService.
func (s *ScanServiceImpl) IssueToken(ctx context.Context, employeeID string) (attendance.TokenResponse, error) {
	emp, err := s.EmployeeRepository.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, employee.ErrEmployeeNotFound) {
			return attendance.TokenResponse{}, err
		}
		return attendance.TokenResponse{}, fmt.Errorf("failed to look up employee: %w", err)
	}

	now := s.now().UTC()
	if purged, err := s.TokenRepository.PurgeExpired(ctx, now); err != nil {
		slog.WarnContext(ctx, "failed to purge expired tokens", "error", err)
	} else if purged > 0 {
		slog.DebugContext(ctx, "purged expired tokens", "count", purged)
	}

	sum := sha256.Sum256([]byte(fmt.Sprintf("%s-%s-%d", emp.ID, uuid.NewString(), now.Unix())))
	token := attendance.Token{
		Value:      hex.EncodeToString(sum[:]),
		EmployeeID: emp.ID,
		ExpiresAt:  now.Add(s.cfg.TokenTTL),
		CreatedAt:  now,
	}

	if err := s.TokenRepository.Save(ctx, token); err != nil {
		return attendance.TokenResponse{}, fmt.Errorf("failed to save token: %w", err)
	}

	png, err := qrcode.Encode(token.Value, qrcode.DefaultSize)
	if err != nil {
		return attendance.TokenResponse{}, err
	}

	return attendance.TokenResponse{
		Token:      token.Value,
		EmployeeID: token.EmployeeID,
		ExpiresAt:  token.ExpiresAt.Format(time.RFC3339),
		QRCodePNG:  base64.StdEncoding.EncodeToString(png),
	}, nil
}
