// Package gemini implements the generation.Backend interface on top of
// Google's Gemini API.
//
// This package is an infrastructure adapter: it translates the
// application's generation requests into google.golang.org/genai calls
// without exposing SDK types to the core application.
//
// Key responsibilities:
//
//  1. Request translation:
//     - Builds multimodal content (text plus inline image bytes)
//     - Applies system instructions, temperature, and token ceilings
//     - Attaches the process-wide safety settings to every call
//
//  2. Response translation:
//     - Maps prompt-feedback blocks and safety finishes to Result.Blocked
//     - Concatenates streamed fragments through the caller's yield
//
//  3. Error handling:
//     - Classifies API errors into the generation sentinel taxonomy
//     - Retries transient failures with exponential backoff and jitter
//     - Passes context cancellation through unchanged
//
// The package also exposes model discovery (ListImageModels) for the
// image-generation routing cache.
package gemini
