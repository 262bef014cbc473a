package engine

// DocumentStore describes the directory layout the engine moves documents
// and artifacts through. The intake store is its sole implementation.
type DocumentStore interface {
	PendingDir() string
	ProcessingDir() string
	ProcessedDir() string
	ExtractedDir() string
	ValidatedDir() string
	ApprovedDir() string
}
