package pipeline

import "errors"

// ErrPageUnavailable is returned by the page step when the target page could
// not be fetched or was empty. It stops the run with an UNKNOWN verdict.
var ErrPageUnavailable = errors.New("target page unavailable")
