package middleware

import (
	"context"
	"time"

	"github.com/rpattn/slicereports/internal/logger"
	"github.com/rpattn/slicereports/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Query describes one report call as seen by interceptors.
type Query struct {
	Entity  string
	Page    int
	PerPage int
}

// Handler runs the query itself.
type Handler func(ctx context.Context) error

// Interceptor wraps a Handler. It must call next at most once.
type Interceptor func(ctx context.Context, q Query, next Handler) error

// Chain composes interceptors; the first one is the outermost.
func Chain(interceptors ...Interceptor) Interceptor {
	return func(ctx context.Context, q Query, next Handler) error {
		h := next
		for i := len(interceptors) - 1; i >= 0; i-- {
			ic, inner := interceptors[i], h
			h = func(ctx context.Context) error { return ic(ctx, q, inner) }
		}
		return h(ctx)
	}
}

// Logging attaches entity and paging fields to the request logger and logs
// each query's duration and error.
func Logging() Interceptor {
	return func(ctx context.Context, q Query, next Handler) error {
		ctx, log := logger.ContextWithFields(ctx, logrus.Fields{
			"entity":   q.Entity,
			"page":     q.Page,
			"per_page": q.PerPage,
		})

		start := time.Now()
		err := next(ctx)
		duration := time.Since(start).Seconds() * 1000 // ms

		if err != nil {
			log.WithError(err).Errorf("query %s failed after %.3fms", q.Entity, duration)
			return err
		}
		log.Debugf("query %s took %.3fms", q.Entity, duration)
		return nil
	}
}

// Metrics records total query duration and failures on c. A nil c is a no-op.
func Metrics(c *metrics.Collectors) Interceptor {
	return func(ctx context.Context, q Query, next Handler) error {
		start := time.Now()
		err := next(ctx)
		if err != nil {
			c.Failed(q.Entity)
			return err
		}
		c.Observe(q.Entity, metrics.PhaseTotal, start)
		return nil
	}
}
