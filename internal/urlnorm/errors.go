package urlnorm

import "errors"

// ErrInvalidTarget is returned when a scan target is not an http or https URL with a host.
var ErrInvalidTarget = errors.New("invalid target: expected an http or https URL with a host")
