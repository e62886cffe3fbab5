package main

import (
	"context"
	"embed"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/JonMunkholm/SheetSQL/internal/config"
	"github.com/JonMunkholm/SheetSQL/internal/llm"
	"github.com/JonMunkholm/SheetSQL/internal/observability"
	"github.com/JonMunkholm/SheetSQL/internal/upload"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	sessionName       = "sheetsql"
	multipartMemory   = 8 << 20
	readHeaderTimeout = 10 * time.Second
)

//go:embed templates/*.html
var templateFS embed.FS

// generator is the part of llm.Generator the handlers depend on.
type generator interface {
	Generate(ctx context.Context, req llm.GenerationRequest) llm.Result
}

type app struct {
	cfg       config.Config
	tmpl      *template.Template
	sessions  sessions.Store
	uploads   *upload.Store
	generator generator
	logger    *zap.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	uploads, err := upload.NewStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal("init upload store", zap.Error(err))
	}

	provider, err := llm.NewProvider(cfg.LLM())
	if err != nil {
		logger.Fatal("init LLM provider", zap.Error(err))
	}
	logger.Info("LLM provider initialized",
		zap.String("provider", provider.Name()),
		zap.Duration("timeout", cfg.LLMTimeout),
	)

	app := newApp(cfg, uploads, llm.NewGenerator(provider, cfg.LLMTimeout, logger), logger)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           app.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	logger.Info("listening",
		zap.String("addr", cfg.Addr),
		zap.String("upload_dir", uploads.Dir()),
		zap.Int64("max_upload_bytes", cfg.MaxUploadBytes),
	)
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newApp(cfg config.Config, uploads *upload.Store, gen generator, logger *zap.Logger) *app {
	store := sessions.NewCookieStore([]byte(cfg.SecretKey))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   3600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}

	return &app{
		cfg:       cfg,
		tmpl:      template.Must(template.ParseFS(templateFS, "templates/*.html")),
		sessions:  store,
		uploads:   uploads,
		generator: gen,
		logger:    logger,
	}
}

func (a *app) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.LoggingMiddleware(a.logger))
	r.Use(observability.MetricsMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/", a.handleIndex)
	r.Post("/", a.handleSubmit)
	r.Post("/export", a.handleExport)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	return r
}
