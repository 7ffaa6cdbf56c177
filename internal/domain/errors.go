package domain

import "errors"

var (
	// ErrEmptyInput is returned when a category has no historical samples
	ErrEmptyInput = errors.New("empty input series")
	// ErrInvalidSample is returned for duplicate years, negative or non-finite values
	ErrInvalidSample = errors.New("invalid sample")
	// ErrDivergence is returned when the training loss becomes non-finite
	ErrDivergence = errors.New("training diverged")
	// ErrNoModel is returned when forecasting without a fitted model
	ErrNoModel = errors.New("no trained model")
	// ErrComputeFailed is returned when applying a model produces a non-finite value
	ErrComputeFailed = errors.New("forecast computation failed")
	// ErrInvalidHorizon is returned when future years are empty, unordered or overlap history
	ErrInvalidHorizon = errors.New("invalid forecast horizon")
	// ErrNotFound is returned when a region or record does not exist
	ErrNotFound = errors.New("not found")
	// ErrSuperseded is returned when a newer selection replaced an in-flight one
	ErrSuperseded = errors.New("selection superseded")
)
