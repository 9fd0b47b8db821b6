package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/krau/nsfwdetector/classifier"
	"github.com/krau/nsfwdetector/config"
	"github.com/krau/nsfwdetector/docs"
)

// Server owns the credential and the classifier for the lifetime of the
// process. Neither is reassigned after New.
type Server struct {
	apiKey     string
	model      string
	addr       string
	classifier classifier.Classifier
	metrics    *Metrics
	engine     *gin.Engine
}

func New(cfg config.Config, c classifier.Classifier) *Server {
	model := cfg.ModelID
	if cfg.Backend == config.BackendVision {
		model = "google-cloud-vision/safe-search"
	}
	s := &Server{
		apiKey:     cfg.APIKey,
		model:      model,
		addr:       cfg.Addr(),
		classifier: c,
		metrics:    NewMetrics(),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery(), requestID(), requestLogger(), s.metrics.Middleware(), openCORS())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Detail: "Not Found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, ErrorResponse{Detail: "Method Not Allowed"})
	})

	docs.SwaggerInfo.Version = AppVersion
	r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	api := r.Group("/", s.authenticate)
	api.GET("/", s.InfoHandler)
	api.GET("/health", s.HealthHandler)
	api.GET("/version", s.VersionHandler)
	api.POST("/predict", s.PredictHandler)
	api.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	return r
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Listening on", slog.String("address", s.addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
