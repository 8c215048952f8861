package manager

// validationError signals a missing or malformed request field.
type validationError struct{ msg string }

func (e validationError) Error() string { return e.msg }

// ErrValidation constructs a validationError with the given user-facing
// message.
func ErrValidation(msg string) error { return validationError{msg: msg} }

// IsValidation reports whether err is a request-validation failure.
func IsValidation(err error) bool {
	_, ok := err.(validationError)
	return ok
}

// audioNotFoundError signals an absent audio path, detected before the
// model cache is touched.
type audioNotFoundError struct{ path string }

func (e audioNotFoundError) Error() string { return "Audio file not found: " + e.path }

// ErrAudioNotFound constructs an audioNotFoundError for path.
func ErrAudioNotFound(path string) error { return audioNotFoundError{path: path} }

// IsAudioNotFound reports whether err indicates a missing audio file.
func IsAudioNotFound(err error) bool {
	_, ok := err.(audioNotFoundError)
	return ok
}

// modelUnavailableError signals a failed model load or construction.
type modelUnavailableError struct {
	id    string
	cause error
}

func (e modelUnavailableError) Error() string {
	if e.cause == nil {
		return "model unavailable: " + e.id
	}
	return "model unavailable: " + e.id + ": " + e.cause.Error()
}

func (e modelUnavailableError) Unwrap() error { return e.cause }

// ErrModelUnavailable wraps a load failure for id.
func ErrModelUnavailable(id string, cause error) error {
	return modelUnavailableError{id: id, cause: cause}
}

// IsModelUnavailable reports whether err indicates a failed model load.
func IsModelUnavailable(err error) bool {
	_, ok := err.(modelUnavailableError)
	return ok
}

// transcriptionFailedError signals a decode-time failure. Its message is
// the underlying cause's, matching what callers surface verbatim.
type transcriptionFailedError struct{ cause error }

func (e transcriptionFailedError) Error() string { return e.cause.Error() }

func (e transcriptionFailedError) Unwrap() error { return e.cause }

// ErrTranscriptionFailed wraps a decode failure.
func ErrTranscriptionFailed(cause error) error {
	return transcriptionFailedError{cause: cause}
}

// IsTranscriptionFailed reports whether err is a decode-time failure.
func IsTranscriptionFailed(err error) bool {
	_, ok := err.(transcriptionFailedError)
	return ok
}

// unknownModelError signals a maintenance operation on an identifier
// outside the catalog.
type unknownModelError struct{ id string }

func (e unknownModelError) Error() string { return "Unknown model: " + e.id }

// ErrUnknownModel constructs an unknownModelError for id.
func ErrUnknownModel(id string) error { return unknownModelError{id: id} }

// IsUnknownModel reports whether err indicates an identifier outside the
// catalog.
func IsUnknownModel(err error) bool {
	_, ok := err.(unknownModelError)
	return ok
}
