package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/go-extras/cobraflags"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/yukikurage/annonest-api/internal/config"
	"github.com/yukikurage/annonest-api/internal/database"
	"github.com/yukikurage/annonest-api/internal/handlers"
	"github.com/yukikurage/annonest-api/internal/middleware"
	"github.com/yukikurage/annonest-api/internal/repository"
	"github.com/yukikurage/annonest-api/internal/services"
	"gorm.io/gorm"
)

const (
	addrFlag          = "addr"
	skipMigrationFlag = "skip-migrations"
)

var serveFlags = map[string]cobraflags.Flag{
	addrFlag: &cobraflags.StringFlag{
		Name:  addrFlag,
		Value: "",
		Usage: "Listen address, overrides HTTP_ADDR",
	},
	skipMigrationFlag: &cobraflags.BoolFlag{
		Name:  skipMigrationFlag,
		Value: false,
		Usage: "Start without running migrations",
	},
}

func newServeCommand() *cobra.Command {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  serveCommand,
	}

	cobraflags.RegisterMap(serveCmd, serveFlags)
	return serveCmd
}

func serveCommand(cmd *cobra.Command, _ []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}
	if addr := serveFlags[addrFlag].GetString(); addr != "" {
		cfg.HTTPAddr = addr
	}

	if !serveFlags[skipMigrationFlag].GetBool() {
		if err := database.Migrate(log); err != nil {
			return err
		}
	}

	gin.SetMode(cfg.GinMode)

	store, err := newSessionStore(cfg)
	if err != nil {
		return err
	}

	db := database.GetDB()
	svc := newServices(cfg, db)

	router := handlers.NewRouter(handlers.RouterOptions{
		Services:     svc,
		Logger:       log,
		SessionStore: store,
		RateLimiter:  middleware.NewRateLimiter(cfg.RateLimitPerMin, time.Minute),
		DB:           db,
	})

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.LockSweepInterval > 0 {
		go sweepLocks(ctx, svc.Locks, cfg.LockSweepInterval, log)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func newSessionStore(cfg *config.Config) (sessions.Store, error) {
	var store sessions.Store

	switch cfg.SessionStore {
	case "redis":
		redisAddr := cfg.RedisHost + ":" + cfg.RedisPort
		s, err := redisStore.NewStore(
			10,    // pool size
			"tcp", // network type
			redisAddr,
			"", // username
			"", // password
			[]byte(cfg.SessionSecret),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create Redis store: %w", err)
		}
		store = s
	case "cookie":
		store = cookie.NewStore([]byte(cfg.SessionSecret))
	default:
		return nil, fmt.Errorf("unsupported SESSION_STORE %q", cfg.SessionStore)
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

func newServices(cfg *config.Config, db *gorm.DB) handlers.Services {
	userRepo := repository.NewUserRepository(db)
	orgRepo := repository.NewOrganizationRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	entityRepo := repository.NewEntityRepository(db)

	// nil keeps tag suggestion disabled
	var suggester services.TagSuggester
	if cfg.OpenAIAPIKey != "" {
		suggester = services.NewAIService(cfg.OpenAIAPIKey)
	}

	locks := services.NewLockService(repository.NewLockRepository(db), entityRepo, cfg.LockTTL, services.SystemClock)

	return handlers.Services{
		Auth:          services.NewAuthService(userRepo, orgRepo, cfg.TrialDays, services.SystemClock),
		Organizations: services.NewOrganizationService(orgRepo, userRepo),
		Projects:      services.NewProjectService(projectRepo),
		Tasks:         services.NewTaskService(repository.NewTaskRepository(db), projectRepo, userRepo, entityRepo, suggester),
		WorkItems:     services.NewWorkItemService(repository.NewWorkItemRepository(db), projectRepo, userRepo, entityRepo),
		Locks:         locks,
		Entities:      services.NewEntityService(entityRepo, locks, services.SystemClock),
		Relationships: services.NewRelationshipService(repository.NewRelationshipRepository(db), entityRepo),
	}
}

func sweepLocks(ctx context.Context, locks *services.LockService, every time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := locks.Sweep()
			if err != nil {
				log.Error().Err(err).Msg("lock sweep failed")
				continue
			}
			if n > 0 {
				log.Info().Int64("released", n).Msg("expired edit locks released")
			}
		}
	}
}
