package mixin

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Options configures a Composer.
type Options struct {
	Logger         *zap.Logger
	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
	Shards         int // default: 1
	Store          *Store
}

type Option func(*Options)

// WithLogger sets the logger. Hits and misses go to Debug, mixin failures to Warn.
func WithLogger(logger *zap.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *Options) { o.MeterProvider = mp }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Options) { o.TracerProvider = tp }
}

// WithShards sets the shard count of the store the composer creates.
// It has no effect together with WithStore.
func WithShards(n int) Option {
	return func(o *Options) { o.Shards = n }
}

// WithStore makes the composer use an existing store, so several composers
// can share one cache.
func WithStore(s *Store) Option {
	return func(o *Options) { o.Store = s }
}

func newOptions(opts []Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.MeterProvider == nil {
		o.MeterProvider = otel.GetMeterProvider()
	}
	if o.TracerProvider == nil {
		o.TracerProvider = otel.GetTracerProvider()
	}
	if o.Shards <= 0 {
		o.Shards = 1
	}
	if o.Store == nil {
		o.Store = NewStore(o.Shards)
	}
	return o
}
