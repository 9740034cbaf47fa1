// Package api handles incoming HTTP requests, request validation, and
// response formatting. It acts as an adapter between external clients
// and the internal application services, translating HTTP concerns to
// task, document, and generation operations.
package api
