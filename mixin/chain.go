package mixin

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// ErrNilResult is returned when a mixin reports success but returns no class.
var ErrNilResult = errors.New("mixin returned a nil class")

// mixinPanic carries a mixin's panic value out of the single flight so that
// every waiting caller can panic again with the original value.
type mixinPanic struct {
	value any
}

func (p *mixinPanic) Error() string {
	return fmt.Sprintf("mixin panicked: %v", p.value)
}

// Composer applies mixin chains against a Store.
type Composer struct {
	store  *Store
	logger *zap.Logger
	ins    *instruments
}

// New returns a Composer. Without options it logs nothing, reports to the
// global otel providers and owns a fresh single-shard store.
func New(opts ...Option) *Composer {
	o := newOptions(opts)
	return &Composer{
		store:  o.Store,
		logger: o.Logger,
		ins:    newInstruments(o.MeterProvider, o.TracerProvider),
	}
}

// Store returns the cache the composer reads and populates.
func (c *Composer) Store() *Store { return c.store }

// Apply is ApplyContext with a background context.
func (c *Composer) Apply(base *Class, mixins ...*Mixin) (*Class, error) {
	return c.ApplyContext(context.Background(), base, mixins...)
}

// ApplyContext folds mixins over base from left to right and returns the
// final class. An empty chain returns base itself.
//
// Each (intermediate class, mixin) step is computed at most once per store;
// later calls reuse the cached class, so the same base and chain always give
// the identical *Class. A different order gives a different class.
//
// A mixin error is returned as is. The fold stops there and nothing is cached
// for the failed step; steps before it stay cached. ctx only carries telemetry,
// mixins are never interrupted.
func (c *Composer) ApplyContext(ctx context.Context, base *Class, mixins ...*Mixin) (*Class, error) {
	if base == nil {
		panic("mixin.Apply: nil base class")
	}
	if len(mixins) == 0 {
		return base, nil
	}

	ctx, span := c.ins.tracer.Start(ctx, "mixin.Apply", trace.WithAttributes(
		attribute.String("mixin.base", base.name),
		attribute.Int("mixin.chain.length", len(mixins)),
	))
	defer span.End()

	current := base
	for i, m := range mixins {
		if m == nil {
			panic(fmt.Sprintf("mixin.Apply: nil mixin at position %d", i))
		}
		next, err := c.step(ctx, current, m)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		current = next
	}
	span.SetAttributes(attribute.String("mixin.result", current.name))
	return current, nil
}

func (c *Composer) step(ctx context.Context, current *Class, m *Mixin) (*Class, error) {
	if cached, ok := c.store.Lookup(current, m); ok {
		c.ins.hit(ctx, m)
		c.logger.Debug("mixin cache hit", zap.Stringer("base", current), zap.Stringer("mixin", m))
		return cached, nil
	}

	t := c.store.ensureTable(current)
	invoked := false
	v, err, _ := t.flight.Do(m.id.String(), func() (v any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = &mixinPanic{value: r}
			}
		}()
		// another flight may have stored it between our lookup and now
		if cached, ok := t.load(m); ok {
			return cached, nil
		}
		invoked = true
		res, err := m.fn(current)
		if err != nil {
			return nil, err
		}
		if res == nil {
			return nil, fmt.Errorf("%w: %s applied to %s", ErrNilResult, m.name, current.name)
		}
		if res != current && res.super == current {
			res.markOrigin(m)
		}
		held, _ := t.insert(m, res)
		return held, nil
	})
	if err != nil {
		c.ins.fail(ctx, m)
		c.logger.Warn("mixin failed",
			zap.Stringer("base", current),
			zap.Stringer("mixin", m),
			zap.Error(err),
		)
		var p *mixinPanic
		if errors.As(err, &p) {
			panic(p.value)
		}
		return nil, err
	}

	res := v.(*Class)
	if invoked {
		c.ins.miss(ctx, m)
		c.logger.Debug("mixin applied",
			zap.Stringer("base", current),
			zap.Stringer("mixin", m),
			zap.Stringer("result", res),
		)
	} else {
		c.ins.hit(ctx, m)
		c.logger.Debug("mixin cache hit", zap.Stringer("base", current), zap.Stringer("mixin", m))
	}
	return res, nil
}

// Prepare applies each chain to base so later Apply calls hit the cache.
// Unlike Apply it keeps going after a failed chain, and returns every
// failure combined.
func (c *Composer) Prepare(ctx context.Context, base *Class, chains ...[]*Mixin) error {
	var errs error
	for _, chain := range chains {
		if _, err := c.ApplyContext(ctx, base, chain...); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
