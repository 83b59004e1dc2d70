package vehicle

import "errors"

// ErrAuth is returned when the upstream API rejects the credentials.
var ErrAuth = errors.New("vehicle api authentication failed")

// ErrUnavailable is returned when the upstream API cannot be reached or
// answers with a server error. Callers treat it the same as any other
// fetch or command failure.
var ErrUnavailable = errors.New("vehicle api unavailable")
