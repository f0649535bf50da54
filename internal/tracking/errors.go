package tracking

import "errors"

// Sample failure taxonomy. The caller needs to distinguish "no permission"
// from "no signal yet" from "timed out", so these are sentinel errors rather
// than a single opaque failure.
var (
	ErrPermissionDenied  = errors.New("location permission denied")
	ErrTimeout           = errors.New("location request timed out")
	ErrSignalUnavailable = errors.New("location signal unavailable")
	ErrMalformedSample   = errors.New("malformed location sample")
)

// Controller errors.
var (
	ErrUnauthenticated  = errors.New("no authenticated user")
	ErrShiftAlreadyOpen = errors.New("a shift is already open")
	ErrNoOpenShift      = errors.New("no shift is open")
)
