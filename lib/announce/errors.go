package announce

import "errors"

// Rejection reasons. These use errors.New (not oops.Errorf) so callers can
// match them with errors.Is().
var (
	ErrIFACFlagged         = errors.New("packet carries an interface access code")
	ErrNotAnnounce         = errors.New("packet is not an announce")
	ErrMalformedAnnounce   = errors.New("announce payload too short")
	ErrInvalidSignature    = errors.New("invalid announce signature")
	ErrDestinationMismatch = errors.New("announce destination mismatch")
)
