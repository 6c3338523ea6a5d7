package models

import "errors"

var (
	// ErrEmptyInput means no usable rows remained after filtering.
	ErrEmptyInput = errors.New("empty input")

	// ErrModelNotTrained means a prediction was requested before any model
	// state was trained or persisted.
	ErrModelNotTrained = errors.New("model not trained")

	// ErrUpstreamFetch wraps failures of the upstream data source.
	ErrUpstreamFetch = errors.New("upstream fetch failed")

	ErrInvalidParameter = errors.New("invalid parameter")
)
