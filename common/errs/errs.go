package errs

// ErrorKind identifies a kind of internal error.
// fully support for errors.Is and errors.As.
type ErrorKind string

const (
	// NotFound is returned when a requested item is not found.
	NotFound = ErrorKind("Not Found")

	// InvalidArgument is returned when an argument is invalid.
	InvalidArgument = ErrorKind("Invalid Argument")

	// InternalError is returned when an invariant of the program itself is broken.
	InternalError = ErrorKind("Internal Error")

	// Unsupported is returned when a feature or result is not supported.
	Unsupported = ErrorKind("Unsupported")

	// ConflictSetting is returned when the persisted state does not match the running configuration.
	ConflictSetting = ErrorKind("Conflict Setting")

	// SomethingWentWrong is returned when an unexpected state is reached.
	SomethingWentWrong = ErrorKind("Something Went Wrong")

	// Timeout is returned when an operation does not finish in time.
	Timeout = ErrorKind("Timeout")

	// Closed is returned when sending to or reading from a closed resource.
	Closed = ErrorKind("Closed")

	// Corrupted is returned when derived state is inconsistent with itself or with upstream data.
	// Indexing must halt, it is never retried.
	Corrupted = ErrorKind("Corrupted")

	// Fatal is returned when a retryable failure exhausted its retries.
	Fatal = ErrorKind("Fatal")

	OverflowUint64  = ErrorKind("overflow uint64")
	OverflowUint128 = ErrorKind("overflow uint128")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}
