package queue

import "errors"

var (
	// ErrCodec reports a malformed key or record encountered during decode.
	// This indicates corruption; it is surfaced, never retried.
	ErrCodec = errors.New("queue: malformed key or record")

	// ErrStore wraps an underlying store failure that survived the retry
	// budget (I/O error, resource exhaustion).
	ErrStore = errors.New("queue: store failure")

	// ErrContentionExceeded reports that the bounded retry budget for
	// conflict-class transaction failures was exhausted. Callers may retry
	// at a higher level.
	ErrContentionExceeded = errors.New("queue: transaction retry budget exhausted")

	// ErrAlreadyRegistered reports Register with a consumer name that
	// already exists. Re-registration is not idempotent: honoring a second
	// registration could move an existing cursor.
	ErrAlreadyRegistered = errors.New("queue: consumer already registered")

	// ErrUnknownConsumer reports an operation naming a consumer with no
	// cursor on this queue.
	ErrUnknownConsumer = errors.New("queue: unknown consumer")

	// ErrModeMismatch reports an operation that does not apply to the
	// queue's mode: opening with a different mode than persisted, consumer
	// operations on a single-mode queue, or a missing consumer name on a
	// broadcast queue.
	ErrModeMismatch = errors.New("queue: operation does not match queue mode")

	// ErrQueueFull reports that an enqueue would exceed the configured
	// entry capacity. Transient: consumers or the reclaimer free space.
	ErrQueueFull = errors.New("queue: capacity reached, try again later")

	// ErrTooLarge reports a payload above the configured size limit.
	ErrTooLarge = errors.New("queue: payload exceeds size limit")

	// ErrBadName reports an invalid queue or consumer name.
	ErrBadName = errors.New("queue: invalid name")
)
