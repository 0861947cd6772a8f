// Package apperr defines the sentinel errors shared across cmsloader.
//
// None of the content-resolution errors are fatal: they are recorded, logged
// and degrade the result to fewer (or no) records.
package apperr

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// ErrMalformedHeaderLine marks a single header line that could not be parsed.
	ErrMalformedHeaderLine = errors.New("malformed header line")
	// ErrMissingClosingDelimiter marks a document whose header block is not closed.
	ErrMissingClosingDelimiter = errors.New("missing closing delimiter")
	// ErrSourceUnavailable marks one failed retrieval attempt.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrRateLimited marks an explicit throttling response from the remote API.
	ErrRateLimited = errors.New("rate limited")
	// ErrTotalResolutionFailure marks a file for which every source failed.
	ErrTotalResolutionFailure = errors.New("total resolution failure")
	// ErrEmptyCollection marks a load that produced no records.
	ErrEmptyCollection = errors.New("empty collection")
)
