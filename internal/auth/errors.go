package auth

import (
	"errors"

	"github.com/udisondev/realmd/internal/patch"
	"github.com/udisondev/realmd/internal/srp6"
)

// Handler failures. Any error returned from a handler closes the connection.
var (
	ErrWrongStatus    = errors.New("command not allowed in session status")
	ErrMalformed      = errors.New("malformed message")
	ErrReconnectProof = errors.New("reconnect proof mismatch")
	ErrTokenMismatch  = errors.New("authenticator token mismatch")
	ErrNoSessionKey   = errors.New("no stored session key")
	ErrUnknownAccount = errors.New("unknown account")

	ErrZeroEphemeral     = srp6.ErrZeroEphemeral
	ErrNoPatch           = patch.ErrNoPatch
	ErrTransferCancelled = patch.ErrTransferCancelled
)
