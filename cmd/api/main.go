package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"studieo/internal/app"
	"studieo/internal/config"
	"studieo/internal/database"
	apphttp "studieo/internal/http"
	"studieo/internal/http/handlers"
	"studieo/internal/http/metrics"
	httpmw "studieo/internal/http/middleware"
	"studieo/internal/integration/mailer"
	"studieo/internal/observability"
	"studieo/internal/repository/postgres"
	"studieo/internal/scheduler"
	"studieo/internal/security"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := observability.NewLogger()
	db := database.NewPostgres(database.PostgresConfig{
		DSN:             cfg.PostgresDSN,
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxIdle:     cfg.DBConnMaxIdle,
		ConnMaxLifetime: cfg.DBConnMaxLife,
	})
	defer db.Close()
	database.Migrate(db, cfg.MigrationsDir)

	userRepo := postgres.NewUserRepository(db)
	analyticsRepo := postgres.NewAnalyticsRepository(db)
	studentRepo := postgres.NewStudentProfileRepository(db)
	companyRepo := postgres.NewCompanyProfileRepository(db)
	projectRepo := postgres.NewProjectRepository(db)
	applicationRepo := postgres.NewApplicationRepository(db)

	jwtProvider := security.NewJWTProvider(cfg.JWTSecret)
	mailerClient := mailer.NewClient(cfg.MailerBaseURL, cfg.MailerAPIKey, cfg.MailerFrom, &http.Client{Timeout: cfg.MailerTimeout})

	userService := app.NewUserService(userRepo, analyticsRepo)
	profileService := app.NewProfileService(studentRepo, companyRepo, analyticsRepo)
	projectService := app.NewProjectService(projectRepo, companyRepo, analyticsRepo)
	applicationService := app.NewApplicationService(applicationRepo, projectRepo, studentRepo, companyRepo, userRepo, analyticsRepo, mailerClient, logger)

	var limiter httpmw.Limiter = httpmw.NewRateLimiter()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		limiter = httpmw.NewRedisLimiter(redisClient)
	}

	userHandler := handlers.NewUserHandler(userService)
	profileHandler := handlers.NewProfileHandler(profileService)
	projectHandler := handlers.NewProjectHandler(projectService)
	applicationHandler := handlers.NewApplicationHandler(applicationService, limiter)
	middleware := httpmw.NewAuthMiddleware(jwtProvider)

	collector := metrics.NewCollector()

	router := apphttp.NewRouter(apphttp.RouterDependencies{
		UserHandler:        userHandler,
		ProfileHandler:     profileHandler,
		ProjectHandler:     projectHandler,
		ApplicationHandler: applicationHandler,
		MetricsHandler:     metrics.NewHandler(collector),
		AuthMiddleware:     middleware,
		Metrics:            collector,
		RequestTimeout:     cfg.RequestTimeout,
	})
	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	jobs := scheduler.New()
	reminderJob := scheduler.NewReminderJob(applicationRepo, mailerClient, cfg.ReminderMinAge, logger)
	if err := jobs.AddJob(cfg.ReminderCron, reminderJob, time.Minute); err != nil {
		log.Fatalf("failed to schedule reminder job: %v", err)
	}
	jobs.Start()
	defer jobs.Stop()

	go func() {
		logger.Info("API started on :" + cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal(err)
	}
}
