// Package telemetry holds the pure payload decoders: byte offsets and
// scale factors in, named fields out. Offsets and field names follow the
// existing Hyundai/Kia EV telemetry schema and must not drift, downstream
// consumers key on them.
package telemetry

import (
	"fmt"
	"time"
)

// Record is one decoded telemetry group, JSON-ready.
type Record map[string]interface{}

// for tests
var timeNow = time.Now

func newRecord() Record {
	return Record{"timestamp": timeNow().Unix()}
}

// MissingData marks a dependent value that the vehicle did not provide,
// commonly because the motor is off. Recoverable, the group is skipped.
type MissingData struct {
	Field string
}

func (e MissingData) Error() string {
	return fmt.Sprintf("telemetry: could not get %s value", e.Field)
}

// InconsistentReading marks a decoded value outside its physical range.
// Some BMS reads return uninitialized garbage that must not be published.
type InconsistentReading struct {
	Field string
	Value float64
}

func (e InconsistentReading) Error() string {
	return fmt.Sprintf("telemetry: got inconsistent data for %s: %v", e.Field, e.Value)
}

// bigEndian composes len(b) bytes into an unsigned integer, MSB first.
func bigEndian(b []byte) int {
	v := 0
	for _, x := range b {
		v = v<<8 | int(x)
	}
	return v
}

// Gear stick position as concatenated letters, fixed mask order.
// Multiple bits may be set at once, all matching letters are included.
func Gear(bits byte) string {
	gear := ""
	if bits&0x1 != 0 {
		gear += "P"
	}
	if bits&0x2 != 0 {
		gear += "R"
	}
	if bits&0x4 != 0 {
		gear += "N"
	}
	if bits&0x8 != 0 {
		gear += "D"
	}
	if bits&0x10 != 0 {
		gear += "B"
	}
	return gear
}
