// Package sse streams execution progress to interactive clients over
// Server-Sent Events: node-state transitions from a stepped session, and
// run/output events when a pipeline completes or suspends.
//
// It includes client connection management, pattern-keyed broadcasting
// (clients subscribe as "execution:<pipeline>" or "execution:<sessionId>"
// and publishers target
// "execution:*" or an exact id), and a hub owning the event loop.
//
// # Architecture
//
//   - Hub: central event router managing client subscriptions
//   - Service: lifecycle wrapper the engine starts and health-checks
//   - ServeSSE: HTTP handler wiring a request into the hub
//
// # Usage
//
//	svc := sse.NewService("/events")
//	svc.Start(ctx)
//	engine.SetBroadcaster(svc)
package sse
