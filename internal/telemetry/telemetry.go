package telemetry

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "socialfeed"

// Tracer returns the shared tracer. It resolves against the global
// provider, which is a no-op unless the operator installs an SDK, so
// span attributes cost nothing in the default deployment.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}
