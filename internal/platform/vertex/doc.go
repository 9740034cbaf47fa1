// Package vertex implements the generation.Backend interface against
// the Vertex AI REST API with a plain HTTP client.
//
// It exists for deployments that route Gemini models through a Vertex
// project instead of the public Gemini API. The wire format is the
// generateContent / streamGenerateContent JSON surface; streaming uses
// server-sent events. Errors are classified into the generation
// sentinel taxonomy from the HTTP status code.
package vertex
