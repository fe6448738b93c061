// Package trace records timing spans for server work: requests, builds and
// linter invocations.
//
// Tracing is opt-in. With the level at off, Begin returns an inert span and
// nothing is allocated per event. Spans are written as they end, either as
// text lines or as newline-delimited JSON:
//
//	tracer, err := trace.New(trace.Config{Level: trace.LevelDetail, OutputPath: "lsp.ndjson"})
//	ctx = trace.WithTracer(ctx, tracer)
//	span := trace.Begin(trace.FromContext(ctx), trace.ScopeTool, "chktex", 0)
//	defer span.End("")
package trace
