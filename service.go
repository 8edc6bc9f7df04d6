package sqlagent

import (
	"context"
	"errors"
	"io"
)

// Runner drives one run to termination. Implemented by the executor
// package; the indirection keeps the Service free of the packages that
// compose the loop.
type Runner interface {
	Execute(ctx context.Context, run *Run) (*FinalAnswer, error)
}

// RunnerFactory builds the per-request runner around a resolved model:
// the tool set over the shared database pool, the reasoning loop, and
// the executor driving it. Called once per Submit. The factory should
// report the resolved model's ID in answer metadata (the executor's
// WithModelID), since the request's ID may be empty or an alias.
type RunnerFactory func(model Model) (Runner, error)

// ModelResolver resolves a request's model ID to a provider-backed
// Model. Implemented by models.Router.
type ModelResolver interface {
	Resolve(modelID string) (Model, error)
}

// ModelCatalog lists the models a request may name. Implemented by
// models.Catalog.
type ModelCatalog interface {
	List(ctx context.Context) []ModelDescriptor
}

// Service is the facade callers integrate against: submit one question,
// receive exactly one answer or classified failure; list the models a
// request may name.
//
// A Service is safe for concurrent use; every Submit runs an independent
// loop over its own Run.
//
// Wiring (the integrationtest/cli command does exactly this):
//
//	db, err := postgres.Open(ctx, postgres.Config{DSN: cfg.Database.DSN})
//	router := models.NewRouter(cfg.Providers.OpenAIKey, cfg.Providers.OpenRouterKey)
//
//	factory := func(model sqlagent.Model) (sqlagent.Runner, error) {
//	    inspector := tools.NewCachingInspector(postgres.NewInspector(db))
//	    queryExec := postgres.NewExecutor(db).
//	        WithQueryTimeout(cfg.Database.QueryTimeout).
//	        WithReadOnly(cfg.Database.ReadOnly)
//	    reg := registry.New().
//	        MustRegister(tools.NewListTables(inspector)).
//	        MustRegister(tools.NewSchema(inspector)).
//	        MustRegister(tools.NewQuerySQL(queryExec))
//	    agent := react.NewAgent(model, reg).WithTopK(cfg.Agent.TopK)
//	    return executor.New(agent).WithModelID(model.ModelID()), nil
//	}
//
//	service := sqlagent.NewService(router, factory).
//	    WithCatalog(catalog).
//	    WithHooks(hookRegistry).
//	    WithLimits(cfg.Agent.Limits()).
//	    WithCloser(db)
type Service struct {
	resolver ModelResolver
	factory  RunnerFactory
	catalog  ModelCatalog
	hooks    HookFirer
	limits   Limits
	closers  []io.Closer
}

// NewService creates a service with default limits and no catalog.
func NewService(resolver ModelResolver, factory RunnerFactory) *Service {
	return &Service{
		resolver: resolver,
		factory:  factory,
		limits:   DefaultLimits(),
	}
}

// WithCatalog sets the model catalog behind ListAvailableModels. Returns
// the service for chaining.
func (s *Service) WithCatalog(catalog ModelCatalog) *Service {
	s.catalog = catalog
	return s
}

// WithHooks attaches a hook registry to every run the service creates.
// Returns the service for chaining.
func (s *Service) WithHooks(hooks HookFirer) *Service {
	s.hooks = hooks
	return s
}

// WithLimits replaces the run limits. Returns the service for chaining.
func (s *Service) WithLimits(limits Limits) *Service {
	s.limits = limits
	return s
}

// WithCloser registers a resource to release in Close, e.g. the database
// pool. Returns the service for chaining.
func (s *Service) WithCloser(closer io.Closer) *Service {
	s.closers = append(s.closers, closer)
	return s
}

// Submit runs one question to termination and returns exactly one of a
// final answer or an error that is always a *Failure with a stable cause
// and retry guidance.
//
// The run is bounded by Limits.RunTimeout through the context; caller
// cancellation propagates into in-flight provider and database calls.
func (s *Service) Submit(ctx context.Context, req QueryRequest) (*FinalAnswer, error) {
	model, err := s.resolver.Resolve(req.ModelID)
	if err != nil {
		return nil, &Failure{
			Cause:    CauseProviderUnavailable,
			Message:  err.Error(),
			Guidance: "Check the provider configuration and API key, then try again.",
			Meta:     AnswerMeta{ModelID: req.ModelID},
		}
	}

	runner, err := s.factory(model)
	if err != nil {
		return nil, AsFailure(err)
	}

	run := NewRun(req, s.limits)
	if s.hooks != nil {
		run.WithHooks(s.hooks)
	}

	if s.limits.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.limits.RunTimeout)
		defer cancel()
	}

	answer, err := runner.Execute(ctx, run)
	if err != nil {
		return nil, AsFailure(err)
	}
	return answer, nil
}

// ListAvailableModels returns the models a request may name, in catalog
// order. Returns an empty slice when no catalog is configured; never
// fails.
func (s *Service) ListAvailableModels(ctx context.Context) []ModelDescriptor {
	if s.catalog == nil {
		return []ModelDescriptor{}
	}
	return s.catalog.List(ctx)
}

// Close releases resources registered with WithCloser, in reverse
// registration order.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
