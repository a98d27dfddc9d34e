package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"proacademics-service/internal/config"
	"proacademics-service/internal/database/minio"
	"proacademics-service/internal/database/mongo"
	"proacademics-service/internal/database/redis"
	"proacademics-service/internal/event"
	"proacademics-service/internal/handlers"
	"proacademics-service/internal/middleware"
	"proacademics-service/internal/models"
	"proacademics-service/internal/repository"
	"proacademics-service/internal/services"
	"proacademics-service/pkg/discovery"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// setupLogging redirects the standard logger to a dated file under logDir. Without a
// directory the logger keeps writing to stderr.
func setupLogging(logDir string) (*os.File, error) {
	if logDir == "" {
		log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
		return nil, nil
	}

	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

type stores struct {
	users    repository.Store[models.User]
	subjects repository.Store[models.Subject]
	programs repository.Store[models.Program]
	lessons  repository.Store[models.Lesson]
	homework repository.Store[models.Homework]
	papers   repository.Store[models.PastPaper]
	videos   repository.Store[models.TopicVaultVideo]
	sessions repository.Store[models.ChatSession]
}

func openStores(cfg config.MongoDBConfig) (*stores, error) {
	if cfg.Driver == "memory" {
		log.Println("Using in-memory storage, data will not survive a restart")
		return &stores{
			users:    repository.NewMemoryStore[models.User]("email"),
			subjects: repository.NewMemoryStore[models.Subject](),
			programs: repository.NewMemoryStore[models.Program](),
			lessons:  repository.NewMemoryStore[models.Lesson](),
			homework: repository.NewMemoryStore[models.Homework](),
			papers:   repository.NewMemoryStore[models.PastPaper](),
			videos:   repository.NewMemoryStore[models.TopicVaultVideo](),
			sessions: repository.NewMemoryStore[models.ChatSession](),
		}, nil
	}

	db, err := mongo.Connect(cfg)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := repository.EnsureIndexes(ctx, db); err != nil {
		log.Printf("Warning: Failed to create indexes: %v", err)
	}

	return &stores{
		users:    repository.NewMongoStore[models.User](db, repository.UsersCollection),
		subjects: repository.NewMongoStore[models.Subject](db, repository.SubjectsCollection),
		programs: repository.NewMongoStore[models.Program](db, repository.ProgramsCollection),
		lessons:  repository.NewMongoStore[models.Lesson](db, repository.LessonsCollection),
		homework: repository.NewMongoStore[models.Homework](db, repository.HomeworkCollection),
		papers:   repository.NewMongoStore[models.PastPaper](db, repository.PastPapersCollection),
		videos:   repository.NewMongoStore[models.TopicVaultVideo](db, repository.TopicVaultCollection),
		sessions: repository.NewMongoStore[models.ChatSession](db, repository.ChatSessionsCollection),
	}, nil
}

func main() {
	cfg := config.ServiceConfig

	logFile, err := setupLogging(cfg.Server.LogDir)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if cfg.Auth.JWTSecret == "" {
		log.Fatal("NEXTAUTH_SECRET must be set")
	}

	st, err := openStores(cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}

	var cache repository.Cache = repository.NoopCache{}
	if client := redis.Connect(cfg.Redis); client != nil {
		cache = repository.NewRedisCache(client)
	}

	var publisher event.Publisher
	eventPublisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Printf("Warning: Failed to initialize event publisher: %v", err)
	} else {
		publisher = eventPublisher
	}

	var storage services.FileStorage
	fileStore, err := minio.NewFileStore(cfg.MinIO)
	if err != nil {
		log.Printf("Warning: Failed to initialize MinIO: %v", err)
	} else if fileStore != nil {
		storage = fileStore
	}

	var meetings services.MeetingCreator
	if zoom := services.NewZoomClient(cfg.Zoom); zoom != nil {
		meetings = zoom
	} else {
		log.Println("Zoom credentials not configured, meeting links must be supplied manually")
	}

	var llm services.ChatCompleter
	if client := services.NewLLMClient(cfg.OpenAI); client != nil {
		llm = client
	} else {
		log.Println("OPENAI_API_KEY not set, the tutor will answer with fallback replies")
	}

	tokenService, err := services.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	if err != nil {
		log.Fatalf("Failed to initialize token service: %v", err)
	}

	leaderboardService := services.NewLeaderboardService(st.users, cache, cfg.Redis.CacheTTL)
	userService := services.NewUserService(st.users, leaderboardService, publisher)
	lessonService := services.NewLessonService(st.lessons, meetings, publisher)
	homeworkService := services.NewHomeworkService(st.homework, userService, publisher)
	subjectService := services.NewSubjectService(st.subjects, st.programs)
	topicVaultService := services.NewTopicVaultService(st.videos)
	pastPaperService := services.NewPastPaperService(st.papers, storage)
	statsService := services.NewStatsService(services.StatsSources{
		Users:      userService,
		Lessons:    lessonService,
		Homework:   homeworkService,
		Subjects:   subjectService,
		TopicVault: topicVaultService,
		PastPapers: pastPaperService,
	}, cache, cfg.Redis.CacheTTL)
	maintenanceService := services.NewMaintenanceService(homeworkService, lessonService, userService, statsService, publisher)

	seedCtx, seedCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := userService.EnsureAdmin(seedCtx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Printf("Warning: Failed to seed admin account: %v", err)
	}
	seedCancel()

	app := fiber.New(fiber.Config{
		AppName:      cfg.Server.ServiceName,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimit:    int(cfg.MinIO.MaxUploadSize) + 1<<20,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Content-Length", "Accept-Encoding", "Authorization", "accept", "origin", "Cache-Control", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           int((12 * time.Hour).Seconds()),
	}))
	app.Use(middleware.Metrics())

	app.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("ProAcademics Service is healthy")
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	handlers.Register(app, &handlers.Services{
		Users:       userService,
		Tokens:      tokenService,
		Leaderboard: leaderboardService,
		Lessons:     lessonService,
		Homework:    homeworkService,
		Subjects:    subjectService,
		TopicVault:  topicVaultService,
		PastPapers:  pastPaperService,
		Stats:       statsService,
		Imports:     services.NewImportService(st.homework, st.lessons, st.videos, publisher),
		Maintenance: maintenanceService,
		Tutor:       services.NewTutorService(st.sessions, llm),
	}, handlers.Options{
		CronSecret:    cfg.Cron.Secret,
		MaxUploadSize: cfg.MinIO.MaxUploadSize,
	})

	scheduler, err := maintenanceService.StartSchedule(cfg.Cron.Schedule)
	if err != nil {
		log.Printf("Warning: Failed to start maintenance schedule: %v", err)
	}

	var registry *discovery.ServiceRegistry
	if cfg.Consul.ConsulAddress != "" {
		registry, err = discovery.NewServiceRegistry(
			cfg.Consul.ConsulAddress,
			cfg.Server.ServiceName,
			cfg.Server.ServiceID,
			cfg.Server.ServiceAddress,
			cfg.Server.Port,
		)
		if err != nil {
			log.Printf("Warning: Failed to create service registry: %v", err)
		} else if err := registry.Register(); err != nil {
			log.Printf("Warning: Failed to register service: %v", err)
			registry = nil
		}
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := app.Listen(fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	if scheduler != nil {
		<-scheduler.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	if eventPublisher != nil {
		if err := eventPublisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}

	redis.Close()
	mongo.DisconnectMongo()

	if registry != nil {
		if err := registry.Deregister(); err != nil {
			log.Printf("Error deregistering from service discovery: %v", err)
		}
	}

	<-doneChan
	log.Println("Server shutdown complete")
}
