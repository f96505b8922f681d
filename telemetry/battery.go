package telemetry

import "fmt"

// Reassembled BMS payloads for extended commands 2101..2105.
type BatteryPayloads struct {
	B2101 []byte
	B2102 []byte
	B2103 []byte
	B2104 []byte
	B2105 []byte
}

// DecodeBattery extracts the battery group from the five BMS payloads.
// State Of Health above 100% means the BMS served garbage, the whole
// record is rejected with InconsistentReading.
func DecodeBattery(p BatteryPayloads) (Record, error) {
	if len(p.B2101) < 57 || len(p.B2105) < 34 {
		return nil, MissingData{Field: "battery"}
	}
	for i, b := range [][]byte{p.B2102, p.B2103, p.B2104} {
		if len(b) < 38 {
			return nil, MissingData{Field: fmt.Sprintf("battery cell voltages 210%d", i+2)}
		}
	}

	soh := float64(bigEndian(p.B2105[27:29])) / 10.0
	if soh > 100 {
		return nil, InconsistentReading{Field: "battery Status Of Health", Value: soh}
	}

	chargingBits := p.B2101[11]
	dcBatteryCurrent := float64(bigEndian(p.B2101[12:14])) / 10.0
	dcBatteryVoltage := float64(bigEndian(p.B2101[14:16])) / 10.0

	cellTemps := []int{
		int(p.B2101[18]), //  0
		int(p.B2101[19]), //  1
		int(p.B2101[20]), //  2
		int(p.B2101[21]), //  3
		int(p.B2101[22]), //  4
		int(p.B2105[11]), //  5
		int(p.B2105[12]), //  6
		int(p.B2105[13]), //  7
		int(p.B2105[14]), //  8
		int(p.B2105[15]), //  9
		int(p.B2105[16]), // 10
		int(p.B2105[17]), // 11
	}
	tempSum := 0
	for _, t := range cellTemps {
		tempSum += t
	}

	r := newRecord()
	r["socBms"] = float64(p.B2101[6]) / 2.0 // %
	r["socDisplay"] = int(float64(p.B2105[33]) / 2.0) // %
	r["soh"] = soh // %
	r["bmsIgnition"] = boolBit(p.B2101[52], 0x4)
	r["bmsMainRelay"] = boolBit(chargingBits, 0x1)
	r["auxBatteryVoltage"] = float64(p.B2101[31]) / 10.0 // V
	r["charging"] = boolBit(chargingBits, 0x80)
	r["normalChargePort"] = boolBit(chargingBits, 0x20)
	r["rapidChargePort"] = boolBit(chargingBits, 0x40)
	r["fanStatus"] = int(p.B2101[29]) // Hz
	r["fanFeedback"] = int(p.B2101[30])
	r["cumulativeEnergyCharged"] = float64(bigEndian(p.B2101[40:44])) / 10.0 // kWh
	r["cumulativeEnergyDischarged"] = float64(bigEndian(p.B2101[44:48])) / 10.0 // kWh
	r["cumulativeChargeCurrent"] = float64(bigEndian(p.B2101[32:36])) / 10.0 // A
	r["cumulativeDischargeCurrent"] = float64(bigEndian(p.B2101[36:40])) / 10.0 // A
	r["cumulativeOperatingTime"] = bigEndian(p.B2101[48:52]) // seconds
	r["availableChargePower"] = float64(bigEndian(p.B2101[7:9])) / 100.0 // kW
	r["availableDischargePower"] = float64(bigEndian(p.B2101[9:11])) / 100.0 // kW
	r["dcBatteryCellVoltageDeviation"] = float64(p.B2105[22]) / 50.0 // V
	r["dcBatteryHeater1Temperature"] = float64(p.B2105[25]) // C
	r["dcBatteryHeater2Temperature"] = float64(p.B2105[26]) // C
	r["dcBatteryInletTemperature"] = int(p.B2101[22]) // C
	r["dcBatteryMaxTemperature"] = int(p.B2101[16]) // C
	r["dcBatteryMinTemperature"] = int(p.B2101[17]) // C
	r["dcBatteryCellNoMaxDeterioration"] = int(p.B2105[29])
	r["dcBatteryCellMinDeterioration"] = float64(bigEndian(p.B2105[30:32])) / 10.0 // %
	r["dcBatteryCellNoMinDeterioration"] = int(p.B2105[32])
	r["dcBatteryCurrent"] = dcBatteryCurrent // A
	r["dcBatteryPower"] = dcBatteryCurrent * dcBatteryVoltage / 1000.0 // kW
	r["dcBatteryVoltage"] = dcBatteryVoltage // V
	r["dcBatteryAvgTemperature"] = float64(tempSum) / float64(len(cellTemps)) // C
	r["driveMotorSpeed"] = bigEndian(p.B2101[55:57]) // RPM

	for i, temp := range cellTemps {
		r[fmt.Sprintf("dcBatteryModuleTemp%02d", i+1)] = float64(temp)
	}
	n := 1
	for _, payload := range [][]byte{p.B2102, p.B2103, p.B2104} {
		for i := 6; i < 38; i++ {
			r[fmt.Sprintf("dcBatteryCellVoltage%02d", n)] = float64(payload[i]) / 50.0
			n++
		}
	}
	return r, nil
}

func boolBit(b, mask byte) int {
	if b&mask != 0 {
		return 1
	}
	return 0
}
