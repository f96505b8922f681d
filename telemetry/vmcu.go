package telemetry

// DecodeVMCU extracts vehicle motor control unit data: VIN, gear stick
// position and speed. VIN payload may be absent with the motor off, the
// field is then omitted rather than failing the group.
func DecodeVMCU(vin, b2101 []byte) (Record, error) {
	if len(b2101) < 17 {
		return nil, MissingData{Field: "VMCU information"}
	}
	r := newRecord()
	if len(vin) >= 33 {
		r["vin"] = decodeVIN(vin)
	}
	r["gear"] = Gear(b2101[7])
	// low byte first on this ECU, not the usual big-endian
	mph := float64(int(b2101[16])*256+int(b2101[15])) / 100.0
	r["kmh"] = mph * 1.60934
	return r, nil
}

// VIN is 17 ASCII characters at payload offset 16.
func decodeVIN(payload []byte) string {
	b := make([]byte, 17)
	copy(b, payload[16:33])
	return string(b)
}
