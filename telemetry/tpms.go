package telemetry

import "fmt"

// Per-tire offsets into the TPMS 22C00B payload: pressure byte, then
// temperature byte right after.
var tireOffsets = [...]int{7, 11, 15, 19}

// DecodeTPMS extracts tire pressures (psi) and temperatures (C).
func DecodeTPMS(payload []byte) (Record, error) {
	if len(payload) < 21 {
		return nil, MissingData{Field: "TPMS information"}
	}
	r := newRecord()
	for i, off := range tireOffsets {
		r[fmt.Sprintf("tire_%d_pressure", i+1)] = float64(payload[off]) * 0.2 // psi
		r[fmt.Sprintf("tire_%d_temperature", i+1)] = int(payload[off+1]) - 55 // C
	}
	return r, nil
}
