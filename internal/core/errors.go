package core

import "github.com/cockroachdb/errors"

var (
	// ErrMalformedResponse is returned when a helper reply cannot be interpreted.
	ErrMalformedResponse = errors.New("response was not in the expected format")

	// ErrUnboundVariables is returned when a prompt still has placeholders without values.
	ErrUnboundVariables = errors.New("prompt has unbound variables")

	// ErrBatchCancelled is returned by Aggregate when branches were dropped after cancellation.
	ErrBatchCancelled = errors.New("batch cancelled")

	// ErrEmptyBatch is returned when a dispatch is attempted without variants.
	ErrEmptyBatch = errors.New("batch has no variants")
)
