// Package server hosts the combat service's network surface and the
// lifecycle plumbing that starts and stops its long-running parts.
package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Lifecycle starts registered components in order and stops them in
// reverse order when a termination signal arrives or a component fails.
type Lifecycle struct {
	logger     *zap.Logger
	components []component
}

type component struct {
	name  string
	start func() error
	stop  func()
}

// NewLifecycle creates a Lifecycle manager.
//
// Precondition: logger must be non-nil.
func NewLifecycle(logger *zap.Logger) *Lifecycle {
	return &Lifecycle{logger: logger}
}

// Add registers a component. start must block for the component's
// lifetime; stop must cause start to return.
//
// Precondition: name must be non-empty; start and stop must be non-nil.
func (l *Lifecycle) Add(name string, start func() error, stop func()) {
	l.components = append(l.components, component{name: name, start: start, stop: stop})
}

// Run starts every component and blocks until SIGINT/SIGTERM, context
// cancellation, or the first component failure, then stops everything
// in reverse order.
//
// Postcondition: All components are stopped when Run returns.
func (l *Lifecycle) Run(ctx context.Context) error {
	begin := time.Now()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, len(l.components))
	for _, c := range l.components {
		go func() {
			l.logger.Info("starting component", zap.String("component", c.name))
			if err := c.start(); err != nil {
				errCh <- fmt.Errorf("component %s: %w", c.name, err)
				cancel()
			}
		}()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		l.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		l.logger.Error("component failed, shutting down", zap.Error(runErr))
	case <-ctx.Done():
		l.logger.Info("context cancelled, shutting down")
	}

	for i := len(l.components) - 1; i >= 0; i-- {
		c := l.components[i]
		stopStart := time.Now()
		c.stop()
		l.logger.Info("component stopped",
			zap.String("component", c.name),
			zap.Duration("elapsed", time.Since(stopStart)),
		)
	}

	l.logger.Info("shutdown complete", zap.Duration("uptime", time.Since(begin)))
	return runErr
}
