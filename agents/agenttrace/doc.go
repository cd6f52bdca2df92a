/*
Copyright 2026 The promptforge Authors
SPDX-License-Identifier: Apache-2.0
*/

/*
Package agenttrace records generation calls as traces.

Each call to a generation backend opens a Trace and an OpenTelemetry span
named "genai.generate". The span carries the backend, model and the bounded
fields of the webhook event found in the context. When the call completes
the Trace is handed to the Tracer attached to the context, or logged at
debug level when there is none.

	ctx = agenttrace.WithTracer(ctx, agenttrace.ByCode(func(t *agenttrace.Trace) {
		log.Printf("trace %s took %v", t.ID, t.Duration())
	}))

	ctx, trace := agenttrace.StartTrace(ctx, "anthropic", "claude-sonnet-4-5", prompt)
	text, err := call(ctx)
	trace.Complete(text, false, err)
*/
package agenttrace
