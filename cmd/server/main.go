package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Simplici0/primeestate/internal/config"
	"github.com/Simplici0/primeestate/internal/db"
	"github.com/Simplici0/primeestate/internal/logging"
	"github.com/Simplici0/primeestate/internal/migrations"
	"github.com/Simplici0/primeestate/internal/notify"
	"github.com/Simplici0/primeestate/internal/pricing"
	"github.com/Simplici0/primeestate/internal/ratelimit"
	"github.com/Simplici0/primeestate/internal/seed"
	"github.com/Simplici0/primeestate/internal/store"
	"github.com/Simplici0/primeestate/web"
)

const shutdownTimeout = 10 * time.Second

type server struct {
	auth      *authService
	store     *store.Store
	notifier  *notify.Notifier
	limiter   ratelimit.Limiter
	logger    *zap.Logger
	templates map[string]*template.Template
	partials  *template.Template
	now       func() time.Time

	// trustProxy takes the client address from X-Forwarded-For / X-Real-IP.
	// Only enable it behind a proxy that overwrites those headers.
	trustProxy bool
}

type baseViewData struct {
	CurrentUser    *store.User
	ErrorMessage   string
	WarningMessage string
	SuccessMessage string
}

var pages = []string{
	"home.html",
	"login.html",
	"register.html",
	"calculator.html",
	"admin_overview.html",
	"admin_logs.html",
	"admin_users.html",
}

var templateFuncs = template.FuncMap{
	"eur":      pricing.FormatEUR,
	"rate":     pricing.FormatRate,
	"datetime": formatDateTime,
}

func formatDateTime(t time.Time) string {
	return t.Format("02 Jan 2006 15:04")
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	for _, warning := range cfg.Warnings() {
		logger.Warn(warning)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(ctx, cfg.DBPath, cfg.DBConnectTimeout)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	if err := migrations.Up(ctx, database); err != nil {
		return fmt.Errorf("run database migrations: %w", err)
	}
	version, err := migrations.Version(ctx, database)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	stats, err := seed.Run(database, seed.Config{AdminEmail: cfg.AdminEmail, AdminPassword: cfg.AdminPassword})
	if err != nil {
		return fmt.Errorf("seed database: %w", err)
	}
	logger.Info("database ready",
		zap.String("path", cfg.DBPath),
		zap.Int64("schema_version", version),
		zap.Int("seed_inserts", stats.Inserts),
		zap.Int("seed_updates", stats.Updates),
	)

	limiter, closeLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeLimiter()

	secret := cfg.SessionSecret
	if secret == "" {
		if !cfg.IsDev() {
			return errors.New("SESSION_SECRET is required outside development")
		}
		secret = randomSecret()
	}

	st := store.New(database)
	auth := newAuthService(st, secret)
	auth.secureCookie = !cfg.IsDev()
	srv, err := newServer(
		auth,
		st,
		notify.New(notify.LogSender{Logger: logger.Named("notify")}, cfg.NotifyFrom, cfg.NotifyTo),
		limiter,
		logger,
	)
	if err != nil {
		return err
	}
	srv.trustProxy = cfg.TrustProxy

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.Env))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newLimiter uses redis when REDIS_ADDR is configured and a per-process limiter otherwise.
func newLimiter(ctx context.Context, cfg config.Config, logger *zap.Logger) (ratelimit.Limiter, func(), error) {
	if cfg.RedisAddr == "" {
		m := ratelimit.NewMemory(cfg.RateLimit, cfg.RateLimitWindow)
		return m, m.Stop, nil
	}

	client, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("rate limiter using redis", zap.String("addr", cfg.RedisAddr))
	return ratelimit.NewRedis(client, cfg.RateLimit, cfg.RateLimitWindow), func() { _ = client.Close() }, nil
}

func randomSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("read random secret: %v", err))
	}
	return hex.EncodeToString(b)
}

func newServer(auth *authService, st *store.Store, notifier *notify.Notifier, limiter ratelimit.Limiter, logger *zap.Logger) (*server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(web.Templates,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+page,
		)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", page, err)
		}
		templates[page] = t
	}

	partials, err := template.New("partials.html").Funcs(templateFuncs).ParseFS(web.Templates, "templates/partials.html")
	if err != nil {
		return nil, fmt.Errorf("parse partials: %w", err)
	}

	return &server{
		auth:      auth,
		store:     st,
		notifier:  notifier,
		limiter:   limiter,
		logger:    logger,
		templates: templates,
		partials:  partials,
		now:       time.Now,
	}, nil
}

func (s *server) routes() http.Handler {
	static, err := fs.Sub(web.Static, "static")
	if err != nil {
		panic(err)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(s.sessionMiddleware)

	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.Get("/", s.handleHome)
	r.Get("/healthz", s.handleHealth)
	r.Get("/login", s.handleLoginForm)
	r.Get("/register", s.handleRegisterForm)
	r.Post("/logout", s.handleLogout)
	r.Get("/calculator", s.handleCalculatorForm)
	r.Post("/calculator/preview", s.handleCalculatorPreview)
	r.Post("/api/calculate", s.handleAPICalculate)

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(s.limiter, s.logger))
		r.Post("/login", s.handleLoginSubmit)
		r.Post("/register", s.handleRegisterSubmit)
		r.Post("/calculator", s.handleCalculatorSubmit)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(s.requireAdmin)
		r.Get("/", s.handleAdminOverview)
		r.Get("/logs", s.handleAdminLogs)
		r.Get("/users", s.handleAdminUsers)
	})

	return r
}

func (s *server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.renderTemplate(w, r, http.StatusOK, "home.html", struct{ baseViewData }{s.baseView(r)})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health check failed", zap.Error(err))
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *server) baseView(r *http.Request) baseViewData {
	var base baseViewData
	if u, ok := currentUser(r); ok {
		base.CurrentUser = &u
	}
	return base
}

// renderTemplate buffers page and writes it with status.
func (s *server) renderTemplate(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	t, ok := s.templates[page]
	if !ok {
		s.logger.Error("unknown template", zap.String("page", page))
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.logger.Error("render template", zap.String("page", page), zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *server) renderPartial(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.partials.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.Error("render partial", zap.String("name", name), zap.Error(err))
		http.Error(w, "failed to render template", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
