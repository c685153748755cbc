package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ridepool/ridepool-go/internal/config"
	"github.com/ridepool/ridepool-go/internal/handler"
	"github.com/ridepool/ridepool-go/internal/repository"
	"github.com/ridepool/ridepool-go/internal/repository/memory"
	"github.com/ridepool/ridepool-go/internal/routes"
	"github.com/ridepool/ridepool-go/internal/service"
	"github.com/ridepool/ridepool-go/internal/view"
)

type stores struct {
	users    service.UserStore
	posts    service.PostStore
	requests service.JoinRequestStore
	promote  func(ctx context.Context, usernames []string) (int64, error)
	close    func()
}

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		slog.Error("storage unavailable", "error", err)
		os.Exit(1)
	}
	defer st.close()

	if n, err := st.promote(ctx, cfg.AdminUsernames); err != nil {
		slog.Error("promoting admins failed", "error", err)
		os.Exit(1)
	} else if n > 0 {
		slog.Info("admins promoted", "count", n)
	}

	denylist := openDenylist(ctx, cfg)

	var renderer view.Renderer = view.NewDefaultRenderer()
	if cfg.TemplateDir != "" {
		tr, err := view.NewTemplateRenderer(cfg.TemplateDir)
		if err != nil {
			slog.Error("loading templates failed", "error", err)
			os.Exit(1)
		}
		renderer = tr
	}

	authService := service.NewAuthService(st.users, denylist, service.AuthConfig{
		Secret:             cfg.JWTSecret,
		SessionExpiry:      cfg.SessionExpiry,
		RegistrationExpiry: cfg.RegistrationExpiry,
		EmailDomain:        cfg.EmailDomain,
		AdminUsernames:     cfg.AdminUsernames,
	})
	postService := service.NewPostService(st.posts, st.requests)
	cookies := handler.Cookies{Secure: cfg.CookieSecure}

	r := chi.NewRouter()
	routes.Setup(ctx, r, routes.Deps{
		Auth:           handler.NewAuthHandler(authService, postService, renderer, cookies),
		Posts:          handler.NewPostHandler(postService, renderer),
		Settings:       handler.NewSettingsHandler(authService, renderer),
		Admin:          handler.NewAdminHandler(postService, renderer),
		Secret:         cfg.JWTSecret,
		Revocations:    denylist,
		AllowedOrigins: cfg.AllowedOrigins,
		RateLimit:      routes.RateLimit{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst},
		Metrics:        promhttp.Handler(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server stopped")
}

// openStores connects to MySQL and applies the schema, or falls back to the
// in-memory store when no DSN is configured.
func openStores(ctx context.Context, cfg config.Config) (stores, error) {
	if cfg.DatabaseDSN == "" {
		slog.Warn("DATABASE_DSN not set, using in-memory store; data is lost on restart")
		mem := memory.NewStore()
		users := mem.Users()
		return stores{
			users:    users,
			posts:    mem.Posts(),
			requests: mem.JoinRequests(),
			promote:  users.PromoteAdmins,
			close:    func() {},
		}, nil
	}

	db, err := repository.NewDB(cfg.DatabaseDSN)
	if err != nil {
		return stores{}, err
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return stores{}, err
	}

	users := repository.NewUserRepository(db)
	return stores{
		users:    users,
		posts:    repository.NewPostRepository(db),
		requests: repository.NewJoinRequestRepository(db),
		promote:  users.PromoteAdmins,
		close:    func() { db.Close() },
	}, nil
}

// openDenylist prefers Redis so revocations are shared between instances.
func openDenylist(ctx context.Context, cfg config.Config) service.Denylist {
	if cfg.RedisAddr == "" {
		return memory.NewDenylist()
	}

	client, err := repository.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		slog.Warn("redis unavailable, session revocation is local to this process", "error", err)
		return memory.NewDenylist()
	}
	return repository.NewRedisDenylist(client)
}
