package entrypoint

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/librarian/internal/audit"
	"github.com/mrlokans/librarian/internal/auth"
	"github.com/mrlokans/librarian/internal/catalog"
	"github.com/mrlokans/librarian/internal/config"
	"github.com/mrlokans/librarian/internal/database"
	auditrepo "github.com/mrlokans/librarian/internal/database/audit"
	http_controllers "github.com/mrlokans/librarian/internal/http"
	"github.com/mrlokans/librarian/internal/oauth2"
	"github.com/mrlokans/librarian/internal/oauth2/providers"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT or SIGTERM, then drains in-flight
// requests within the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d (%s)", cfg.HTTP.Host, cfg.HTTP.Port, cfg.Global.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}
	if onShutdown != nil {
		onShutdown(ctx)
	}
	log.Println("Server exiting")
}

// Build wires every component from cfg and returns the router together with
// the open database.
func Build(cfg *config.Config, version string) (*gin.Engine, *database.Database, error) {
	if cfg.Global.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.Init(cfg.Database.Path, database.Options{Verbose: !cfg.Global.IsProduction() && os.Getenv("DB_DEBUG") != ""})
	if err != nil {
		return nil, nil, fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}
	log.Printf("Database ready at %s", cfg.Database.Path)

	sqlDB, err := db.DB.DB()
	if err != nil {
		return nil, nil, err
	}

	auditService := audit.NewService(auditrepo.NewRepository(db.DB))
	catalogService := catalog.NewService(db.DB, auditService)
	authService := auth.NewService(db.DB, cfg.Auth)
	sessionManager := auth.NewSessionManager(sqlDB, cfg.Auth)
	authMiddleware := auth.NewMiddleware(authService, sessionManager)

	registry := oauth2.NewRegistry()
	if cfg.GitHub.Enabled() {
		registry.Register(providers.NewGitHubProvider(providers.GitHubConfig{
			ClientID:     cfg.GitHub.ClientID,
			ClientSecret: cfg.GitHub.ClientSecret,
			CallbackURL:  cfg.GitHub.CallbackURL,
		}))
		log.Printf("GitHub sign-in enabled (callback %s)", cfg.GitHub.CallbackURL)
	} else {
		log.Printf("WARNING: GITHUB_CLIENT_ID or GITHUB_CLIENT_SECRET is not set. GitHub sign-in is disabled.")
	}

	rateLimiter := auth.NewRateLimiter(auth.RateLimitConfigFrom(cfg.Auth))
	authController := auth.NewAuthController(authService, sessionManager, registry, rateLimiter, auditService)

	var csrfSecret []byte
	if cfg.Auth.CSRFEnabled {
		if cfg.Auth.CSRFSecret == "" {
			return nil, nil, errors.New("AUTH_CSRF_ENABLED requires AUTH_CSRF_SECRET")
		}
		// gorilla/csrf wants exactly 32 bytes.
		sum := sha256.Sum256([]byte(cfg.Auth.CSRFSecret))
		csrfSecret = sum[:]
	}

	if hasUsers, err := authService.HasUsers(context.Background()); err == nil && !hasUsers {
		log.Printf("No users found. Run 'librarian create-admin' to create an administrator account.")
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Catalog:         catalogService,
		Database:        db,
		Audit:           auditService,
		AuthService:     authService,
		SessionManager:  sessionManager,
		AuthMiddleware:  authMiddleware,
		AuthController:  authController,
		CSRFSecret:      csrfSecret,
		SecureCookies:   cfg.Auth.SecureCookies,
		CORSOrigins:     cfg.CORS.AllowedOrigins,
		ShowErrorDetail: !cfg.Global.IsProduction(),
		Version:         version,
	})

	return router, db, nil
}

// Run builds the application and serves it until a shutdown signal arrives.
func Run(cfg *config.Config, version string) {
	router, _, err := Build(cfg, version)
	if err != nil {
		log.Fatalf("Startup failed: %v", err)
	}

	Serve(router, cfg, func(ctx context.Context) {
		if err := database.Shutdown(); err != nil {
			log.Printf("Failed to close database: %v", err)
		}
	})
}
