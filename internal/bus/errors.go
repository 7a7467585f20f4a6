package bus

// errUnknownEventType rejects publishes with an unrecognized type tag.
type errUnknownEventType struct{ typ string }

func (e errUnknownEventType) Error() string { return "unknown event type: " + e.typ }

// errInvalidPayload rejects publishes with a malformed payload.
type errInvalidPayload struct{ reason string }

func (e errInvalidPayload) Error() string { return "invalid payload: " + e.reason }

// errBusClosed rejects publishes after Close.
type errBusClosed struct{}

func (errBusClosed) Error() string { return "bus is closed" }

// IsValidation reports whether err is a publish-time input error
// (for 400 mapping at the HTTP layer).
func IsValidation(err error) bool {
	switch err.(type) {
	case errUnknownEventType, errInvalidPayload:
		return true
	}
	return false
}

// IsClosed reports whether err indicates a publish after shutdown.
func IsClosed(err error) bool {
	_, ok := err.(errBusClosed)
	return ok
}
