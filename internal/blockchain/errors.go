// internal/blockchain/errors.go
package blockchain

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyResult is returned when a contract call yields no data, usually
	// because the address holds no code.
	ErrEmptyResult = errors.New("empty call result")

	// ErrReceiptTimeout is returned when a transaction is not mined in time.
	ErrReceiptTimeout = errors.New("timed out waiting for receipt")
)

// RPCError carries the RPC method that failed.
type RPCError struct {
	Method string
	Err    error
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc %s: %v", e.Method, e.Err)
}

func (e *RPCError) Unwrap() error {
	return e.Err
}

func wrapRPC(method string, err error) error {
	if err == nil {
		return nil
	}
	return &RPCError{Method: method, Err: err}
}

// IsRetryable reports whether err looks like a transient node or nonce problem.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection reset",
		"connection refused",
		"no such host",
		"timeout",
		"eof",
		"too many requests",
		"nonce too low",
		"replacement transaction underpriced",
		"already known",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

// IsNonceTooLow reports a node rejecting a transaction whose nonce is already used.
func IsNonceTooLow(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "nonce too low")
}
