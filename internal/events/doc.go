// Package events defines the in-process event types and emitter used to
// decouple the service layer from the task runner. Services persist state
// and emit an event; subscribed handlers pick up the work without the
// service knowing who they are.
package events
