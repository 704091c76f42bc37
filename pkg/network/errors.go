package network

import (
	"errors"
	"fmt"
)

var (
	ErrHardwareFault = errors.New("hardware fault")
	ErrLinkFault     = errors.New("link fault")
	ErrLeaseTimeout  = errors.New("lease timeout")
	ErrNoNAPT        = errors.New("driver cannot route access point traffic")
)

type Fault string

const (
	FaultHardware Fault = "hardware"
	FaultLink     Fault = "link"
)

// BringUpError reports which bring-up phase failed and how it is classified.
type BringUpError struct {
	Phase string
	Fault Fault
	Err   error
}

func (e *BringUpError) Error() string {
	return fmt.Sprintf("%s fault during %s: %v", e.Fault, e.Phase, e.Err)
}

func (e *BringUpError) Unwrap() error { return e.Err }

func (e *BringUpError) Is(target error) bool {
	switch target {
	case ErrHardwareFault:
		return e.Fault == FaultHardware
	case ErrLinkFault:
		return e.Fault == FaultLink
	}
	return false
}

func hardwareFault(phase string, err error) error {
	return &BringUpError{Phase: phase, Fault: FaultHardware, Err: err}
}

func linkFault(phase string, err error) error {
	return &BringUpError{Phase: phase, Fault: FaultLink, Err: err}
}
