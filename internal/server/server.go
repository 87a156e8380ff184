package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/middleware/stdlib"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/nerdneilsfield/go-pdf-translator/internal/config"
	"github.com/nerdneilsfield/go-pdf-translator/internal/queue"
	"github.com/nerdneilsfield/go-pdf-translator/internal/render"
	"github.com/nerdneilsfield/go-pdf-translator/internal/store"
)

// Server 翻译后端 HTTP 服务
type Server struct {
	cfg      config.ServerConfig
	appID    string
	store    store.TaskStore
	queue    queue.Queue
	renderer *render.PDFRenderer
	logger   *zap.Logger

	limiterStore limiter.Store
	router       *mux.Router
	handler      http.Handler
}

// Option 服务选项
type Option func(*Server)

// WithLogger 设置日志记录器
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithLimiterStore 使用共享的限流存储（如 Redis），默认为进程内存储
func WithLimiterStore(st limiter.Store) Option {
	return func(s *Server) {
		s.limiterStore = st
	}
}

// New 创建 HTTP 服务
func New(cfg config.ServerConfig, appID string, st store.TaskStore, q queue.Queue, renderer *render.PDFRenderer, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:      cfg,
		appID:    appID,
		store:    st,
		queue:    q,
		renderer: renderer,
		logger:   zap.NewNop(),
		router:   mux.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	translateLimit, err := s.rateLimit()
	if err != nil {
		return nil, err
	}
	s.registerRoutes(translateLimit)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Disposition", "Content-Length", "Content-Type"},
	})
	s.handler = c.Handler(s.recoverer(s.accessLog(s.router)))
	return s, nil
}

// rateLimit 构造 /translate 的限流中间件，未配置时不限流
func (s *Server) rateLimit() (mux.MiddlewareFunc, error) {
	if s.cfg.RateLimit == "" {
		return func(next http.Handler) http.Handler { return next }, nil
	}

	rate, err := limiter.NewRateFromFormatted(s.cfg.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("invalid server.rate_limit %q: %w", s.cfg.RateLimit, err)
	}
	if s.limiterStore == nil {
		s.limiterStore = memory.NewStore()
	}

	mw := stdlib.NewMiddleware(
		limiter.New(s.limiterStore, rate, limiter.WithTrustForwardHeader(true)),
		stdlib.WithLimitReachedHandler(func(w http.ResponseWriter, r *http.Request) {
			writeError(w, http.StatusTooManyRequests, "Too many translation requests, please retry later")
		}),
	)
	return mw.Handler, nil
}

func (s *Server) registerRoutes(translateLimit mux.MiddlewareFunc) {
	s.router.HandleFunc("/", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/translate", translateLimit(http.HandlerFunc(s.handleTranslate))).Methods(http.MethodPost)
	s.router.HandleFunc("/tasks/{userId}/{taskId}", s.handleGetTask).Methods(http.MethodGet)
	s.router.HandleFunc("/generate-pdf", s.handleGeneratePDF).Methods(http.MethodPost)
}

// Handler 返回完整的 HTTP 处理链
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe 启动服务，ctx 结束后优雅关闭
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.logger.Info("http server shutting down")
	return srv.Shutdown(shutdownCtx)
}

// recoverer 捕获处理器 panic 并返回 500
func (s *Server) recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				if p == http.ErrAbortHandler {
					panic(p)
				}
				s.logger.Error("unhandled panic", zap.Any("panic", p), zap.String("path", r.URL.Path))
				writeJSON(w, http.StatusInternalServerError, map[string]string{
					"error":   "Internal Server Error",
					"message": fmt.Sprint(p),
				})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
