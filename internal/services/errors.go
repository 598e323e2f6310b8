package services

// ValidationError marks a request the caller can fix; handlers map it to a
// 400 response carrying Message verbatim.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
