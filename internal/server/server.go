package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/slok/go-http-metrics/metrics/prometheus"
	"github.com/slok/go-http-metrics/middleware"
	"github.com/slok/go-http-metrics/middleware/std"

	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/handler"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/logger"
	middlWre "github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/middleware"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/repository/postgres"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/core/usecase"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/events/kafka"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/internal/scheduler"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/pkg/config"
	"github.com/muchaeljohn739337-cloud/m-odular-saas-platform-adv-sub001/pkg/postgresdb"
)

type Server struct {
	router            *mux.Router
	log               logger.Logger
	httpServer        *http.Server
	processingHandler *handler.ProcessingHandler
	db                *postgresdb.Database
	publisher         *kafka.Publisher
	scheduler         *scheduler.Scheduler
	schedulerCancel   context.CancelFunc
}

func NewServer(log logger.Logger) (*Server, error) {
	cfgDB, err := config.LoadConfigDB()
	if err != nil {
		return nil, err
	}

	cfgProcessing, err := config.LoadProcessingConfig()
	if err != nil {
		return nil, err
	}

	db, err := postgresdb.NewPostgresDB(*cfgDB, log)
	if err != nil {
		return nil, err
	}

	repo := postgres.NewPostgresProcessingRepo(db.DB, log)
	validator := usecase.NewValidator(repo, cfgProcessing, log)
	processor := usecase.NewProcessor(repo, validator, cfgProcessing, log)

	var publisher *kafka.Publisher
	if len(cfgProcessing.KafkaBrokers) > 0 {
		publisher = kafka.NewPublisher(cfgProcessing.KafkaBrokers, cfgProcessing.KafkaTopic)
		processor.WithPublisher(publisher)
	}

	processingHandler := handler.NewProcessingHandler(processor, validator, log)
	server := &Server{
		log:               log,
		router:            mux.NewRouter(),
		processingHandler: processingHandler,
		db:                db,
		publisher:         publisher,
		scheduler:         scheduler.New(processor, cfgProcessing.ScheduleInterval, log),
	}

	server.router.Use(loggingMiddleware(server.log))

	mw := middleware.New(middleware.Config{
		Recorder: prometheus.NewRecorder(prometheus.Config{}),
	})

	server.router.Use(func(next http.Handler) http.Handler {
		return std.Handler("", mw, next)
	})

	server.RegisterRoutes()

	return server, nil
}

func (s *Server) RegisterRoutes() {
	s.router.Use(middlWre.Recovery(s.log))
	s.processingHandler.RegisterRoutes(s.router)
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	s.router.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
}

func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      12 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 60 * time.Second,
	}

	s.httpServer = srv

	ctx, cancel := context.WithCancel(context.Background())
	s.schedulerCancel = cancel
	go s.scheduler.Run(ctx)

	return srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	var shutdownErr error

	if s.schedulerCancel != nil {
		s.schedulerCancel()
	}

	go func() {
		if s.httpServer != nil {
			err := s.httpServer.Shutdown(ctx)
			if err != nil {
				s.log.Error("failed to shutdown HTTP server", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("HTTP server shutdown error: %w", err)
			}
		}

		if s.publisher != nil {
			if err := s.publisher.Close(); err != nil {
				s.log.Error("failed to close event publisher", logger.ErrorField("error", err))
			}
		}

		if s.db != nil {
			err := s.db.Close()
			if err != nil {
				s.log.Error("failed to close database connection", logger.ErrorField("error", err))
				shutdownErr = fmt.Errorf("database shutdown error: %w", err)
			}
		}

		close(done)
	}()

	select {
	case <-done:
		return shutdownErr
	case <-ctx.Done():
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (s *Server) RunTLS(addr, certFile, keyFile string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       9 * time.Second,
		WriteTimeout:      9 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 6 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
	}

	s.httpServer = srv

	ctx, cancel := context.WithCancel(context.Background())
	s.schedulerCancel = cancel
	go s.scheduler.Run(ctx)

	return srv.ListenAndServeTLS(certFile, keyFile)
}

func loggingMiddleware(log logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Info("HTTP request",
				logger.StringField("method", r.Method),
				logger.StringField("path", r.URL.Path),
				logger.StringField("remote_addr", r.RemoteAddr),
				logger.StringField("user_agent", r.UserAgent()),
			)
			next.ServeHTTP(w, r)
		})
	}
}
