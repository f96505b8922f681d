package obd

import (
	"fmt"

	"github.com/juju/errors"
)

// Failure kind drives the session orchestrator: a recoverable error skips
// the current telemetry group only, a fatal one aborts the whole run.
type Kind uint8

const (
	KindRecoverable Kind = iota
	KindFatal
)

type Kinder interface {
	Kind() Kind
}

// Classify looks through juju/errors annotation wrappers.
// Unanticipated errors default to recoverable so one bad group can never
// take down the rest of the run.
func Classify(err error) Kind {
	if err == nil {
		return KindRecoverable
	}
	if k, ok := errors.Cause(err).(Kinder); ok {
		return k.Kind()
	}
	return KindRecoverable
}

// Adapter opened but the car side never came up.
type ConnectionError struct {
	Status string
}

func (e ConnectionError) Error() string { return "obd: connection failed: " + e.Status }
func (e ConnectionError) Kind() Kind    { return KindFatal }

type NoValidResponse struct {
	Command  string
	Attempts int
}

func (e NoValidResponse) Error() string {
	return fmt.Sprintf("obd: no valid response for %s. Max attempts (%d) exceeded", e.Command, e.Attempts)
}
func (e NoValidResponse) Kind() Kind { return KindRecoverable }
