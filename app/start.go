package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/Black-And-White-Club/tourney-bot/app/observability/attr"
	"golang.org/x/sync/errgroup"
)

// Start runs the ops server, the message router and the modules until ctx
// is cancelled or one of them fails.
func (a *App) Start(ctx context.Context) error {
	logger := a.Observability.Logger

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := a.opsServer.Run(ctx); err != nil {
			return fmt.Errorf("ops server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := a.Router.Run(ctx); err != nil {
			return fmt.Errorf("message router: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-a.Router.Running():
		case <-ctx.Done():
			return nil
		}
		logger.InfoContext(ctx, "Message router running")

		var wg sync.WaitGroup
		runModules(ctx, &wg, a.modules...)
		wg.Wait()
		return nil
	})

	err := g.Wait()
	if err != nil {
		logger.ErrorContext(ctx, "Application stopped with error", attr.Error(err))
	}
	return err
}
