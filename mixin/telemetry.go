package mixin

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/on-the-ground/mixin_ive_go/mixin"

type instruments struct {
	tracer trace.Tracer

	hits     metric.Int64Counter
	misses   metric.Int64Counter
	failures metric.Int64Counter
}

func newInstruments(mp metric.MeterProvider, tp trace.TracerProvider) *instruments {
	meter := mp.Meter(instrumentationName)
	ins := &instruments{tracer: tp.Tracer(instrumentationName)}

	var err error
	ins.hits, err = meter.Int64Counter(
		"mixin.cache.hits",
		metric.WithDescription("Chain steps served from the cache"),
	)
	if err != nil {
		otel.Handle(err)
	}

	ins.misses, err = meter.Int64Counter(
		"mixin.cache.misses",
		metric.WithDescription("Chain steps that invoked a mixin"),
	)
	if err != nil {
		otel.Handle(err)
	}

	ins.failures, err = meter.Int64Counter(
		"mixin.apply.failures",
		metric.WithDescription("Mixin invocations that returned an error"),
	)
	if err != nil {
		otel.Handle(err)
	}

	return ins
}

func mixinAttr(m *Mixin) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("mixin.name", m.name))
}

func (ins *instruments) hit(ctx context.Context, m *Mixin) {
	if ins.hits != nil {
		ins.hits.Add(ctx, 1, mixinAttr(m))
	}
}

func (ins *instruments) miss(ctx context.Context, m *Mixin) {
	if ins.misses != nil {
		ins.misses.Add(ctx, 1, mixinAttr(m))
	}
}

func (ins *instruments) fail(ctx context.Context, m *Mixin) {
	if ins.failures != nil {
		ins.failures.Add(ctx, 1, mixinAttr(m))
	}
}
