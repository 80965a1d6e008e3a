package mixin

import (
	"context"
	"sync/atomic"
)

var defaultComposer atomic.Pointer[Composer]

func init() {
	defaultComposer.Store(New())
}

// Default returns the process-wide composer used by the package-level functions.
func Default() *Composer { return defaultComposer.Load() }

// SetDefault replaces the process-wide composer and returns the previous one.
func SetDefault(c *Composer) *Composer {
	if c == nil {
		panic("mixin.SetDefault: nil composer")
	}
	return defaultComposer.Swap(c)
}

// Apply folds mixins over base using the default composer.
func Apply(base *Class, mixins ...*Mixin) (*Class, error) {
	return Default().Apply(base, mixins...)
}

// ApplyContext is Apply with a context for telemetry.
func ApplyContext(ctx context.Context, base *Class, mixins ...*Mixin) (*Class, error) {
	return Default().ApplyContext(ctx, base, mixins...)
}

// Prepare warms the default composer's cache with several chains.
func Prepare(ctx context.Context, base *Class, chains ...[]*Mixin) error {
	return Default().Prepare(ctx, base, chains...)
}

// Reset empties the default composer's cache. Mostly useful between tests.
func Reset() { Default().Store().Reset() }
