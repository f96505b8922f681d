package telemetry

// DecodeExternalTemperature extracts the ambient sensor reading,
// half-degree resolution with a -80 offset.
func DecodeExternalTemperature(payload []byte) (Record, error) {
	if len(payload) < 15 {
		return nil, MissingData{Field: "external temperature"}
	}
	r := newRecord()
	r["external_temperature"] = (float64(payload[14]) - 80) / 2.0 // C
	return r, nil
}
