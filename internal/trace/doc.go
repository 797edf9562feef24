// Package trace records spans and instant events for registry and layout
// operations.
//
// Tracers are attached to a registry with Registry.SetTracer, to a layout
// engine through its options, or carried in a context:
//
//	ctx = trace.WithTracer(ctx, tracer)
//	ctx, span := trace.BeginContext(ctx, trace.ScopeDriver, "load")
//	defer span.End("")
//
// Levels filter by scope: LevelDriver keeps only driver events, LevelAll
// keeps everything down to individual layout walks. A RingTracer keeps
// the most recent events in memory so they can be dumped after a failure.
package trace
