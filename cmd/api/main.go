package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/labreport-go-api/internal/config"
	"github.com/noah-isme/labreport-go-api/internal/database"
	"github.com/noah-isme/labreport-go-api/internal/handler"
	"github.com/noah-isme/labreport-go-api/internal/middleware"
	"github.com/noah-isme/labreport-go-api/internal/models"
	"github.com/noah-isme/labreport-go-api/internal/render"
	"github.com/noah-isme/labreport-go-api/internal/repository"
	"github.com/noah-isme/labreport-go-api/internal/router"
	"github.com/noah-isme/labreport-go-api/internal/service"
	"github.com/noah-isme/labreport-go-api/pkg/ai"
	cloud "github.com/noah-isme/labreport-go-api/pkg/cloudinary"
	"github.com/noah-isme/labreport-go-api/pkg/docx"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.Template{}, &models.TemplateElement{}, &models.Report{}, &models.Answer{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()

	var natsConn *nats.Conn
	if cfg.NATSUrl != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSUrl, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	var uploader service.FileUploader
	if cfg.CloudinaryCloudName != "" {
		cloudService, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryUploadFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		uploader = cloudService
	}

	hinter := buildHinter(cfg, logger)

	validate := validator.New(validator.WithRequiredStructEnabled())

	templateRepo := repository.NewTemplateRepository(db)
	reportRepo := repository.NewReportRepository(db)
	answerRepo := repository.NewAnswerRepository(db)

	engine := render.NewEngine(logger)

	templateService, err := service.NewTemplateService(templateRepo, validate, uploader, docx.NewConverter(logger), logger)
	if err != nil {
		log.Fatalf("failed to create template service: %v", err)
	}

	renderService := service.NewRenderService(templateRepo, reportRepo, engine, redisClient, cfg.RenderCacheTTL, logger)
	eventService := service.NewEventService(natsConn, cfg.EventSubject, logger)
	reportService := service.NewReportService(reportRepo, templateRepo, answerRepo, validate, renderService, eventService, logger)
	hintService := service.NewHintService(reportRepo, templateRepo, hinter, validate, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventService.Start(ctx)

	tokenService := service.NewTokenService(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	authHandler := handler.NewAuthHandler(tokenService, logger)
	templateHandler := handler.NewTemplateHandler(templateService, renderService, logger)
	reportHandler := handler.NewReportHandler(reportService, renderService, hintService, logger)
	eventsHandler := handler.NewEventsHandler(eventService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:     authHandler,
		PingHandler:     handler.Ping(redisClient),
		TemplateHandler: templateHandler,
		ReportHandler:   reportHandler,
		EventsHandler:   eventsHandler,
		JWTMiddleware:   middleware.JWTProtected(cfg.JWTSecret),
		HintLimiter:     middleware.RateLimit("hint", cfg.HintRateLimit, cfg.HintRateWindow),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
}

// buildHinter selects the AI provider for hint generation. A missing
// API key disables hints rather than failing startup.
func buildHinter(cfg config.Config, logger zerolog.Logger) ai.HintGenerator {
	switch cfg.AIProvider {
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil
		}
		hinter, err := ai.NewAnthropicHinter(ai.AnthropicConfig{APIKey: cfg.AnthropicAPIKey, Model: cfg.AIModel})
		if err != nil {
			logger.Warn().Err(err).Msg("anthropic hinter unavailable; hints disabled")
			return nil
		}
		return hinter
	default:
		if cfg.OpenAIAPIKey == "" {
			return nil
		}
		hinter, err := ai.NewOpenAIHinter(ai.OpenAIConfig{APIKey: cfg.OpenAIAPIKey, Model: cfg.AIModel, Logger: logger})
		if err != nil {
			logger.Warn().Err(err).Msg("openai hinter unavailable; hints disabled")
			return nil
		}
		return hinter
	}
}

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
