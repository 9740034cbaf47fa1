// Package generation invokes AI models on behalf of the task pipelines.
// It owns the request/response contract with the pluggable Backend
// implementations, the bounded pool that keeps blocking SDK calls off
// the caller's scheduler, and the fallback cascade that degrades model
// failures into usable text instead of errors.
package generation
