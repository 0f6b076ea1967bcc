package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/salary-api/api/swagger"
	"github.com/noah-isme/salary-api/internal/handler"
	"github.com/noah-isme/salary-api/internal/models"
	"github.com/noah-isme/salary-api/internal/repository"
	"github.com/noah-isme/salary-api/internal/service"
	"github.com/noah-isme/salary-api/pkg/cache"
	"github.com/noah-isme/salary-api/pkg/config"
	"github.com/noah-isme/salary-api/pkg/database"
	"github.com/noah-isme/salary-api/pkg/export"
	"github.com/noah-isme/salary-api/pkg/jobs"
	"github.com/noah-isme/salary-api/pkg/logger"
	"github.com/noah-isme/salary-api/pkg/storage"
)

// @title Salary API
// @version 1.0.0
// @description Employee, payroll, replacement ledger and kharcha bookkeeping API
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db.DB); err != nil {
			logr.Fatal("failed to apply migrations", zap.Error(err))
		}
	}

	metrics := service.NewMetricsService()
	cacheSvc := newCache(ctx, cfg, metrics, logr)

	app := buildApp(db, cfg, metrics, cacheSvc, logr)
	if app.queue != nil {
		app.queue.Start(ctx)
		defer app.queue.Stop()
		if n := app.exportJobs.RecoverPendingJobs(ctx); n > 0 {
			logr.Info("requeued pending export jobs", zap.Int("count", n))
		}
		go app.exportJobs.StartCleanup(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type application struct {
	router     *gin.Engine
	queue      *jobs.Queue
	exportJobs *service.ExportJobService
}

func newCache(ctx context.Context, cfg *config.Config, metrics *service.MetricsService, logr *zap.Logger) *service.CacheService {
	client, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching disabled", zap.Error(err))
	}
	if client == nil {
		return service.NewCacheService(nil, metrics, cfg.Redis.CacheTTL, logr, false)
	}
	repo := repository.NewCacheRepository(client, logr)
	return service.NewCacheService(repo, metrics, cfg.Redis.CacheTTL, logr, true).WithNamespace(cfg.Redis.Namespace)
}

func buildApp(db *sqlx.DB, cfg *config.Config, metrics *service.MetricsService, cacheSvc *service.CacheService, logr *zap.Logger) *application {
	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	departmentRepo := repository.NewDepartmentRepository(db)
	replacementRepo := repository.NewReplacementRepository(db)
	payrollRepo := repository.NewPayrollRepository(db)
	kharchaRepo := repository.NewKharchaRepository(db)

	pdf := export.NewPDFExporter()
	csv := export.NewCSVExporter()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		Secret: cfg.JWT.Secret,
		Expiry: cfg.JWT.Expiration,
		Issuer: cfg.JWT.Issuer,
	})
	employeeSvc := service.NewEmployeeService(employeeRepo, cacheSvc, metrics, validate, logr)
	departmentSvc := service.NewDepartmentService(departmentRepo, cacheSvc, metrics, validate, logr)
	replacementSvc := service.NewReplacementService(replacementRepo, employeeRepo, cacheSvc, metrics, validate, logr)
	payrollSvc := service.NewPayrollService(payrollRepo, departmentRepo, pdf, cacheSvc, metrics, validate, logr, service.PayrollConfig{
		DefaultWorkingDays: cfg.Payroll.DefaultWorkingDays,
	})
	kharchaSvc := service.NewKharchaService(kharchaRepo, payrollRepo, departmentRepo, employeeRepo, csv, cacheSvc, metrics, validate, logr)

	app := &application{}
	handlers := handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Employees:   handler.NewEmployeeHandler(employeeSvc, replacementSvc),
		Departments: handler.NewDepartmentHandler(departmentSvc),
		Payroll:     handler.NewPayrollHandler(payrollSvc),
		Kharcha:     handler.NewKharchaHandler(kharchaSvc),
		Metrics:     handler.NewMetricsHandler(metrics, db),
	}

	if cfg.Exports.Enabled {
		store, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to prepare export storage", zap.String("dir", cfg.Exports.StorageDir), zap.Error(err))
		}
		signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
		exportRepo := repository.NewExportJobRepository(db)
		exporter := service.NewExportService(payrollRepo, kharchaRepo, store, signer, cacheSvc, service.ExportConfig{
			APIPrefix: cfg.APIPrefix,
			ResultTTL: cfg.Exports.SignedURLTTL,
		}, logr, csv, pdf, export.NewXLSXExporter())

		worker := service.NewExportWorker(exportRepo, exporter, metrics, cfg.Exports.WorkerRetries, logr)
		app.queue = jobs.NewQueue("exports", worker.Handle, jobs.QueueConfig{
			Workers:    cfg.Exports.WorkerConcurrency,
			BufferSize: 64,
			MaxRetries: cfg.Exports.WorkerRetries,
			RetryDelay: 2 * time.Second,
			Logger:     logr,
			Types:      []string{string(models.ExportPayrollRegister), string(models.ExportKharchaRegister)},
			OnDrop:     worker.Drop,
		})
		app.exportJobs = service.NewExportJobService(exportRepo, payrollRepo, app.queue, exporter, validate, logr, service.ExportJobConfig{
			ResultTTL:       cfg.Exports.SignedURLTTL,
			CleanupInterval: cfg.Exports.CleanupInterval,
			MaxRetries:      cfg.Exports.WorkerRetries,
		})
		handlers.Exports = handler.NewExportHandler(app.exportJobs)
	}

	app.router = handler.NewRouter(handler.RouterOptions{
		APIPrefix:      cfg.APIPrefix,
		Production:     cfg.Env == config.EnvProduction,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logr,
		Metrics:        metrics,
		Tokens:         authSvc,
	}, handlers)
	return app
}
