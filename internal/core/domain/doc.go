// Package domain contains the core business entities and rules for
// document ingestion and retrieval-augmented chat. It has no dependencies
// on adapters or external services.
package domain
