package jobs

import "errors"

var (
	// ErrJobNotFound is returned for an unknown or already finished job id.
	ErrJobNotFound = errors.New("jobs: job not found")

	// ErrNotOwner is returned when a caller addresses another owner's job.
	ErrNotOwner = errors.New("jobs: job belongs to a different client")

	// ErrChunkOutOfRange is returned for a chunk index outside the declared count.
	ErrChunkOutOfRange = errors.New("jobs: chunk index out of range")

	// ErrJobSealed is returned for chunks submitted after the job became ready.
	ErrJobSealed = errors.New("jobs: job no longer accepts chunks")

	// ErrNotReady is returned when starting a job that still misses chunks.
	ErrNotReady = errors.New("jobs: job is not ready for processing")

	// ErrAlreadyStarted is returned when starting a job twice.
	ErrAlreadyStarted = errors.New("jobs: job already started")

	// ErrMissingCredential is returned when no extraction credential is configured.
	ErrMissingCredential = errors.New("jobs: extraction credential required")

	// ErrInvalidRequest is returned for malformed Init or chunk input.
	ErrInvalidRequest = errors.New("jobs: invalid request")
)
