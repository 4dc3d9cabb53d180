// Package chat answers authenticated chat messages. Client talks to an
// Ollama-compatible /api/chat endpoint; StaticResponder returns a fixed
// reply for deployments without a model backend.
package chat
