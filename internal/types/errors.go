package types

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrInactive   = errors.New("broker inactive")
	ErrTransport  = errors.New("transport error")
	ErrValidation = errors.New("invalid broker config")

	ErrInvalidBackend = errors.New("invalid backend")
	ErrCacheAccess    = errors.New("cache read/write error")
)

func Err(typedError error, innerErr error, msgTemplate string, args ...any) error {
	if msgTemplate == "" {
		return errors.Join(typedError, innerErr)
	} else {
		return errors.Join(typedError, innerErr, fmt.Errorf(msgTemplate, args...))
	}
}
