package schema

import "errors"

// Error kinds surfaced by the pipelines. Callers match them with errors.Is;
// the concrete cause is wrapped alongside the kind.
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrLoad              = errors.New("load error")
	ErrMetadataNotFound  = errors.New("file metadata not found")
	ErrDownload          = errors.New("download error")
	ErrEmbeddingService  = errors.New("embedding service error")
	ErrIndexUnavailable  = errors.New("vector index unavailable")
	ErrRetrieval         = errors.New("retrieval error")
	ErrGeneration        = errors.New("generation error")
	ErrNotFound          = errors.New("not found")
	ErrBatchFailed       = errors.New("every file in the batch failed")
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// IsTransient reports whether err came from an upstream dependency that may
// succeed on retry. Input errors and missing objects are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidInput) {
		return false
	}
	return errors.Is(err, ErrEmbeddingService) ||
		errors.Is(err, ErrIndexUnavailable) ||
		errors.Is(err, ErrDownload) ||
		errors.Is(err, ErrGeneration)
}

// Code returns a short machine-readable name for the error kind.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrUnsupportedFormat):
		return "unsupported_format"
	case errors.Is(err, ErrMetadataNotFound):
		return "metadata_not_found"
	case errors.Is(err, ErrLoad):
		return "load_error"
	case errors.Is(err, ErrRetrieval):
		return "retrieval_error"
	case errors.Is(err, ErrGeneration):
		return "generation_error"
	case errors.Is(err, ErrDownload):
		return "download_error"
	case errors.Is(err, ErrEmbeddingService):
		return "embedding_service_error"
	case errors.Is(err, ErrIndexUnavailable):
		return "index_unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrBatchFailed):
		return "batch_failed"
	default:
		return "internal_error"
	}
}
