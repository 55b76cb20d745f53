package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Tracing installs an in-process tracer provider so spans carry trace ids for the audit log.
type Tracing struct {
	provider *sdktrace.TracerProvider
}

func NewTracing() *Tracing {
	return &Tracing{}
}

func (t *Tracing) Start(context.Context) error {
	t.provider = sdktrace.NewTracerProvider()
	otel.SetTracerProvider(t.provider)
	return nil
}

func (t *Tracing) Stop(ctx context.Context) error {
	if t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}
