// Package service contains the application-specific use cases. It
// orchestrates interactions between domain objects and the stores
// (defined in internal/store) to fulfill application features: task
// submission and polling, and document upload.
//
// Services receive their dependencies through constructor injection and
// depend only on domain entities and store interfaces, never on
// concrete infrastructure. They translate store errors into
// application-level errors the API layer can map to HTTP status codes.
package service
