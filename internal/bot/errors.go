// internal/bot/errors.go
package bot

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks targets rejected before any chain write.
	ErrValidation = errors.New("invalid target")

	// ErrAlreadyExecuted is a validation failure for pairs already in the position store.
	ErrAlreadyExecuted = fmt.Errorf("%w: pair already executed", ErrValidation)

	// ErrSubmitFailed means every broadcast attempt was rejected.
	ErrSubmitFailed = errors.New("transaction submission failed")

	// ErrReverted means the transaction was mined with a failed status. Never retried.
	ErrReverted = errors.New("transaction reverted")
)

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
