package app

import (
	"context"
	"sync"
)

// Module is a unit the app starts after the router and stops before it.
type Module interface {
	// Run blocks until ctx is cancelled and calls wg.Done on return.
	Run(ctx context.Context, wg *sync.WaitGroup)
	Close() error
}

// runModules starts every module in its own goroutine.
func runModules(ctx context.Context, wg *sync.WaitGroup, modules ...Module) {
	for _, m := range modules {
		wg.Add(1)
		go m.Run(ctx, wg)
	}
}
