package testutil

import "errors"

// ErrSimulated is what MockStore returns after SetErr to fake an outage.
var ErrSimulated = errors.New("simulated database outage")
