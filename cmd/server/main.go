package main // Entry point package

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/config"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/database"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/handler"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/notifier"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/queue"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/repository"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/router"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/service"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/session"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	// Repositories
	members := repository.NewMemberRepo(db)
	shows := repository.NewShowRepo(db)
	queueRepo := repository.NewQueueRepo(db)
	templates := repository.NewTemplateRepo(db)
	supervisors := repository.NewSupervisorRepo(db)

	// Redis backs the chat session store and the public rate limiter.
	// Both degrade gracefully without it.
	rdb := config.NewRedisClient()
	var sessions session.Store
	if rdb != nil {
		sessions = session.NewRedisStore(rdb, cfg.SessionTTL)
	} else {
		log.Printf("redis unavailable, using in-memory chat sessions")
		sessions = session.NewMemoryStore(cfg.SessionTTL)
	}

	// Services
	var resolver service.Resolver
	switch cfg.Resolver.Kind {
	case "ollama":
		resolver = service.NewOllamaResolver(cfg.Resolver.BaseURL, cfg.Resolver.Model, cfg.Resolver.Timeout)
		log.Printf("resolver: ollama (%s, model=%s)", cfg.Resolver.BaseURL, cfg.Resolver.Model)
	default:
		resolver = service.NewBaselineResolver()
		log.Printf("resolver: baseline token similarity")
	}
	validator := service.NewEligibilityValidator(members, queueRepo)
	engine := service.NewTemplateEngine(templates)
	pipeline := service.NewDecisionPipeline(validator, resolver, engine, queueRepo, shows)

	mailer := notifier.NewSMTPNotifier(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Pass, cfg.SMTP.From)
	var publish service.EventPublisher
	if cfg.AMQPURL != "" {
		publish = queue.PublishEmailDelivered
		go func() {
			if err := queue.StartDeliveryConsumer(); err != nil {
				log.Printf("delivery consumer stopped: %v", err)
			}
		}()
	}
	supervision := service.NewSupervisionService(queueRepo, mailer, publish)

	// HTTP surface
	e := echo.New()
	e.HideBanner = true
	e.Server.ReadTimeout = 15 * time.Second
	e.Server.WriteTimeout = 30 * time.Second

	router.RegisterRoutes(e)
	router.RegisterPublic(e,
		handler.NewShowsHandler(shows),
		handler.NewDiscountHandler(pipeline, queueRepo),
		handler.NewChatHandler(sessions, pipeline),
		rdb, cfg.RateLimitPerMin)
	authHandler := handler.NewAuthHandler(cfg, supervisors)
	router.RegisterSupervision(e, handler.NewSupervisionHandler(supervision), authHandler, cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(shows, members), authHandler, cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
