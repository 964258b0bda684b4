package common

import (
	"context"
	"fmt"

	"interviewer/internal/ai"
	"interviewer/internal/archive"
	"interviewer/internal/config"
	"interviewer/internal/conversation"
	"interviewer/internal/errors"
	"interviewer/internal/ingest"
	"interviewer/internal/observability"
	"interviewer/internal/session"
)

// Runtime wires the interview components shared by the serve and
// interview commands
type Runtime struct {
	Config        *config.Config
	AI            *ai.Service
	Observability *observability.ObservabilityManager
	Sessions      *session.Manager
	Ingestor      *ingest.Ingestor
	Archive       *archive.Store
	logger        *errors.Logger
}

// NewRuntime builds the providers, the session manager and the optional archive
func NewRuntime(ctx context.Context, cfg *config.Config, version string, logger *errors.Logger) (*Runtime, error) {
	om, err := observability.NewObservabilityManager(observability.GetObservabilityConfig(cfg, version), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize observability: %w", err)
	}

	service, err := ai.NewService(ctx, cfg, logger)
	if err != nil {
		_ = om.Shutdown(ctx)
		return nil, err
	}

	var opts []session.ManagerOption
	var store *archive.Store
	if cfg.Archive.Enabled {
		store, err = archive.Open(cfg.Archive.Path, logger)
		if err != nil {
			_ = om.Shutdown(ctx)
			return nil, err
		}
		opts = append(opts, session.WithArchiver(store))
	}

	manager := session.NewManager(session.Dependencies{
		Orchestrator: service,
		Processor:    conversation.NewProcessor(service, logger),
		Recorder:     om,
		Logger:       logger,
	}, cfg.Session, opts...)

	return &Runtime{
		Config:        cfg,
		AI:            service,
		Observability: om,
		Sessions:      manager,
		Ingestor:      ingest.NewIngestor(cfg.Ingest.TempDir, cfg.App.MaxUploadSize, logger),
		Archive:       store,
		logger:        logger,
	}, nil
}

// Close ends every live session, then closes the archive and flushes telemetry
func (r *Runtime) Close(ctx context.Context) {
	r.Sessions.Shutdown(ctx)
	if r.Archive != nil {
		if err := r.Archive.Close(); err != nil {
			r.logger.LogError(err, "Failed to close archive")
		}
	}
	if err := r.Observability.Shutdown(ctx); err != nil {
		r.logger.LogError(err, "Failed to shutdown observability")
	}
}
