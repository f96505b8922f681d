package telemetry

// DecodeOdometer extracts the odometer reading, a 3-byte big-endian
// kilometer count. Not available while the engine is off.
func DecodeOdometer(payload []byte) (Record, error) {
	if len(payload) < 12 {
		return nil, MissingData{Field: "odometer"}
	}
	r := newRecord()
	r["odometer"] = bigEndian(payload[9:12])
	return r, nil
}
