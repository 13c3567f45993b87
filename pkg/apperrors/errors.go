// Package apperrors defines sentinel errors shared across the pipeline.
// Components wrap these with fmt.Errorf("...: %w", ...) so callers can
// classify failures with errors.Is.
package apperrors

import "errors"

var (
	// ErrConfig indicates missing or invalid configuration, including an
	// unreadable schema description file. Aborts the run.
	ErrConfig = errors.New("invalid configuration")

	// ErrNotFound indicates the target asset does not exist. Aborts the run.
	ErrNotFound = errors.New("asset not found")

	// ErrAuth indicates a credential or permission failure from either
	// external service.
	ErrAuth = errors.New("authentication failed")

	// ErrModelUnavailable indicates the AI service was throttled or kept
	// erroring after retries. Column-scoped.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrParse indicates the model output contained no recognizable
	// business-name/description pair. Column-scoped.
	ErrParse = errors.New("unparsable model output")

	// ErrWrite indicates the catalog rejected a metadata update.
	// Column-scoped.
	ErrWrite = errors.New("catalog update rejected")
)
