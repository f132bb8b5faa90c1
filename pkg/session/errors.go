// SPDX-License-Identifier: Apache-2.0

package session

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
)

// ErrNotMaster is wrapped by every error caused by missing or revoked
// mastership, so callers can branch with errors.Is.
var ErrNotMaster = errors.New("controller does not hold mastership")

// ConnectError means the device was unreachable within the attempt's bound.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ArbitrationError reports a failed mastership election. NotMaster is set
// when the device answered but another controller holds a higher election
// ID; otherwise the stream itself failed.
type ArbitrationError struct {
	NotMaster bool
	Err       error
}

func (e *ArbitrationError) Error() string {
	if e.NotMaster {
		return "arbitration: another controller is primary"
	}
	return fmt.Sprintf("arbitration: %v", e.Err)
}

func (e *ArbitrationError) Unwrap() error { return e.Err }

// ConfigError reports a rejected forwarding pipeline config; Reason carries
// the device-reported message verbatim.
type ConfigError struct {
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("pipeline config rejected: %s", e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// WriteError reports a failed table-entry mutation. NotMaster writes never
// reached the device or were refused by it; Rejected carries the device's
// status code.
type WriteError struct {
	Op        Op
	NotMaster bool
	Code      codes.Code
	Err       error
}

func (e *WriteError) Error() string {
	if e.NotMaster {
		return fmt.Sprintf("%s refused: not master", e.Op)
	}
	return fmt.Sprintf("%s rejected by device (%s): %v", e.Op, e.Code, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
