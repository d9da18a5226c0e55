package api

import (
	"errors"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samcharles93/modelgate/internal/admission"
	"github.com/samcharles93/modelgate/internal/inference"
	"github.com/samcharles93/modelgate/internal/logger"
)

type Options struct {
	Controller *admission.Controller
	Engine     inference.Engine
	// Store holds deferred jobs. Nil creates one with the default retention.
	Store *JobStore
	// Models lists the supported models in display order.
	Models []string
	// DefaultModel serves requests that name no model. Defaults to Models[0].
	DefaultModel string
	// Gatherer backs /metrics. Nil uses the prometheus default gatherer.
	Gatherer prometheus.Gatherer
	Logger   logger.Logger
	// MaxBodyBytes caps request bodies. Zero means 1 MiB.
	MaxBodyBytes int64

	ProjectName    string
	ProjectVersion string
}

type Server struct {
	controller   *admission.Controller
	engine       inference.Engine
	store        *JobStore
	models       []string
	supported    map[string]struct{}
	defaultModel string
	gatherer     prometheus.Gatherer
	log          logger.Logger
	name         string
	version      string
	maxBody      int64
	clock        func() time.Time
}

func NewServer(opts Options) (*Server, error) {
	if opts.Controller == nil {
		return nil, errors.New("api: admission controller is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("api: inference engine is required")
	}
	if len(opts.Models) == 0 {
		return nil, errors.New("api: at least one supported model is required")
	}
	s := &Server{
		controller:   opts.Controller,
		engine:       opts.Engine,
		store:        opts.Store,
		models:       opts.Models,
		supported:    make(map[string]struct{}, len(opts.Models)),
		defaultModel: opts.DefaultModel,
		gatherer:     opts.Gatherer,
		log:          opts.Logger,
		name:         opts.ProjectName,
		version:      opts.ProjectVersion,
		maxBody:      opts.MaxBodyBytes,
		clock:        time.Now,
	}
	for _, m := range opts.Models {
		s.supported[m] = struct{}{}
	}
	if s.defaultModel == "" {
		s.defaultModel = opts.Models[0]
	}
	if !s.isSupported(s.defaultModel) {
		return nil, errors.New("api: default model " + s.defaultModel + " is not a supported model")
	}
	if s.store == nil {
		s.store = NewJobStore(DefaultJobRetention)
	}
	if s.maxBody <= 0 {
		s.maxBody = maxRequestBody
	}
	if s.gatherer == nil {
		s.gatherer = prometheus.DefaultGatherer
	}
	if s.log == nil {
		s.log = logger.Default()
	}
	if s.name == "" {
		s.name = "modelgate"
	}
	return s, nil
}

func (s *Server) Register(e *echo.Echo) {
	// Completions API (OpenAI-compatible)
	e.POST("/v1/completions", s.handleCreateCompletion)
	e.GET("/v1/completions/:id", s.handleGetCompletion)
	e.POST("/v1/completions/:id/cancel", s.handleCancelCompletion)

	e.GET("/v1/models", s.handleListModels)
	// Model IDs may contain slashes (org/name).
	e.GET("/v1/models/*", s.handleGetModel)

	// Operations
	e.GET("/v1/queue", s.handleQueueStatus)
	e.GET("/healthz", s.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
}

func (s *Server) isSupported(model string) bool {
	_, ok := s.supported[model]
	return ok
}
