// Package testutil provides testing infrastructure for constellation
// pipelines.
//
// The package offers fake modules with scripted behavior, a fluent DagSpec
// builder for assembling test graphs without hand-writing edge lists, and
// testing.T integration for running pipelines inside tests.
//
// # Quick Start
//
// Building and running a test pipeline:
//
//	spec := testutil.NewSpecBuilder("my-pipeline").
//	    Input("text", ctype.String()).
//	    Module("m1", "uppercase",
//	        testutil.Consumes("text", ctype.String()),
//	        testutil.Produces("result", ctype.String())).
//	    Output("result").
//	    Build()
//
//	mod := testutil.NewFakeModule("uppercase").
//	    Returns(map[string]cvalue.CValue{"result": cvalue.String("HI")})
//
//	state := testutil.T(t).Run(spec, []dag.Module{mod}, map[string]cvalue.CValue{
//	    "text": cvalue.String("hi"),
//	})
//
// # Fake Modules
//
// FakeModule records every invocation and can be scripted to succeed, fail,
// fail a fixed number of times before succeeding (for retry tests), or
// block until its context is cancelled (for timeout tests).
//
// # Thread Safety
//
// FakeModule is safe for concurrent invocation; the scheduler may fire it
// from multiple goroutines within a batch.
package testutil
