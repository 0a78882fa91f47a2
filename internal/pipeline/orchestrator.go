package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Orchestrator runs the ingestor and, when configured, the archiver.
type Orchestrator struct {
	ingestor *Ingestor
	archiver *Archiver
	logger   *slog.Logger
}

// NewOrchestrator creates an Orchestrator. archiver may be nil.
func NewOrchestrator(ingestor *Ingestor, archiver *Archiver, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		ingestor: ingestor,
		archiver: archiver,
		logger:   logger.With(slog.String("component", "orchestrator")),
	}
}

// Run restores the ingestor and starts every loop under one errgroup. It
// returns nil on a clean shutdown.
func (o *Orchestrator) Run(ctx context.Context) error {
	o.logger.Info("pipeline orchestrator starting", slog.Bool("archive", o.archiver != nil))

	if err := o.ingestor.Restore(ctx); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := o.ingestor.Run(ctx)
		if ctx.Err() != nil {
			return nil // clean shutdown
		}
		return fmt.Errorf("ingestor: %w", err)
	})

	if o.archiver != nil {
		g.Go(func() error {
			err := o.archiver.Run(ctx)
			if ctx.Err() != nil {
				return nil // clean shutdown
			}
			return fmt.Errorf("archiver: %w", err)
		})
	}

	if err := g.Wait(); err != nil {
		o.logger.Error("pipeline orchestrator stopped with error", slog.String("error", err.Error()))
		return err
	}
	o.logger.Info("pipeline orchestrator stopped cleanly")
	return nil
}
