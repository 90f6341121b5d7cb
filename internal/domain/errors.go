package domain

import "errors"

// Error categories for the pipeline. Adapters wrap these with
// fmt.Errorf("%w: ...") so callers can classify failures with
// errors.Is while keeping provider detail in the message.
var (
	// ErrConfig marks invalid configuration: bad chunk parameters,
	// unknown provider names, missing API keys. Fatal at startup,
	// never retried.
	ErrConfig = errors.New("configuration error")

	// ErrEmbedding marks embedding provider failures (quota, auth,
	// network). Not retried inside the core.
	ErrEmbedding = errors.New("embedding provider error")

	// ErrGeneration marks LLM provider failures, including mid-stream
	// transport failures.
	ErrGeneration = errors.New("generation provider error")

	// ErrIndex marks vector backend storage failures.
	ErrIndex = errors.New("index storage error")

	// ErrUnsupported marks operations a backend does not implement,
	// such as delete on the local file index. An expected outcome,
	// not a crash.
	ErrUnsupported = errors.New("operation not supported")
)
