package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/qr-attendance-go/internal/config"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/attendance"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/employee"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/setting"
	"github.com/cmlabs-hris/qr-attendance-go/internal/domain/transaction"
	appHTTP "github.com/cmlabs-hris/qr-attendance-go/internal/handler/http"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/cron"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/database"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/email"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/geoip"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/qrcode"
	"github.com/cmlabs-hris/qr-attendance-go/internal/pkg/sse"
	"github.com/cmlabs-hris/qr-attendance-go/internal/repository/memory"
	"github.com/cmlabs-hris/qr-attendance-go/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/qr-attendance-go/internal/service/attendance"
	employeeService "github.com/cmlabs-hris/qr-attendance-go/internal/service/employee"
	notificationService "github.com/cmlabs-hris/qr-attendance-go/internal/service/notification"
	reportService "github.com/cmlabs-hris/qr-attendance-go/internal/service/report"
	scanService "github.com/cmlabs-hris/qr-attendance-go/internal/service/scan"
	settingService "github.com/cmlabs-hris/qr-attendance-go/internal/service/setting"
)

type repositories struct {
	tx       transaction.Transactor
	employee employee.EmployeeRepository
	session  attendance.SessionRepository
	token    attendance.TokenRepository
	setting  setting.SettingRepository
	close    func()
}

func newRepositories(ctx context.Context, cfg *config.Config) (repositories, error) {
	switch cfg.Storage.Driver {
	case "memory":
		store := memory.NewStore()
		return repositories{
			tx:       memory.NewTransactor(store),
			employee: memory.NewEmployeeRepository(store),
			session:  memory.NewSessionRepository(store),
			token:    memory.NewTokenRepository(store),
			setting:  memory.NewSettingRepository(store),
			close:    func() {},
		}, nil
	default:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return repositories{}, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return repositories{}, err
		}
		return repositories{
			tx:       postgresql.NewTransactor(db),
			employee: postgresql.NewEmployeeRepository(db),
			session:  postgresql.NewSessionRepository(db),
			token:    postgresql.NewTokenRepository(db),
			setting:  postgresql.NewSettingRepository(db),
			close:    db.Close,
		}, nil
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("Invalid timezone: ", err)
	}

	defaults, err := setting.UpdateSettingsRequest{
		OfficeStart:        cfg.Office.Start,
		OfficeEnd:          cfg.Office.End,
		RequiredDailyHours: cfg.Office.RequiredDailyHours,
	}.ToConfiguration()
	if err != nil {
		log.Fatal("Invalid office defaults: ", err)
	}

	repos, err := newRepositories(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize storage: ", err)
	}
	defer repos.close()

	var policy attendance.ScanPolicy = attendance.PermissivePolicy{}
	if cfg.Scan.StrictScanOrder {
		policy = attendance.StrictChronologyPolicy{}
	}

	var geo scanService.GeoLocator
	if cfg.Scan.GeoIPEnabled {
		geo = geoip.NewClient(cfg.Scan.GeoIPBaseURL)
	}

	var notifier attendance.Notifier
	if cfg.SMTP.Host != "" && cfg.SMTP.AlertRecipient != "" {
		emailService, err := email.NewEmailService(cfg.SMTP)
		if err != nil {
			log.Fatal("Failed to initialize email service: ", err)
		}
		notifier = notificationService.NewNotificationService(emailService, cfg.SMTP.AlertRecipient)
	}

	hub := sse.NewHub()

	settingSvc := settingService.NewSettingService(repos.setting, defaults)
	engine := attendanceService.NewEngine(repos.tx, repos.session, repos.employee, policy, loc)
	scanSvc := scanService.NewScanService(
		repos.tx,
		repos.token,
		repos.employee,
		engine,
		settingSvc,
		qrcode.NewDecoder(),
		geo,
		notifier,
		hub,
		scanService.Config{
			RequireToken:    cfg.Scan.RequireToken,
			TokenTTL:        cfg.Scan.TokenTTL,
			OfficeLatitude:  cfg.Office.Latitude,
			OfficeLongitude: cfg.Office.Longitude,
			Location:        loc,
		},
	)
	employeeSvc := employeeService.NewEmployeeService(repos.tx, repos.employee, repos.session)
	reportSvc := reportService.NewReportService(repos.session, repos.employee, settingSvc, loc)

	router := appHTTP.NewRouter(
		cfg.App,
		appHTTP.NewScanHandler(scanSvc),
		appHTTP.NewEmployeeHandler(employeeSvc),
		appHTTP.NewReportHandler(reportSvc),
		appHTTP.NewDashboardHandler(reportSvc, hub),
		appHTTP.NewSettingHandler(settingSvc),
	)

	scheduler := cron.NewScheduler()
	cron.NewTokenJobs(repos.token, cfg.Scan.TokenTTL).RegisterJobs(scheduler)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	server.RegisterOnShutdown(hub.Close)

	go func() {
		slog.Info("Server running", "addr", "http://localhost"+server.Addr, "storage", cfg.Storage.Driver, "timezone", loc.String())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
