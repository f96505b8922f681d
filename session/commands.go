package session

import (
	"github.com/evtele/evtele/canbus"
	"github.com/evtele/evtele/hardware/obd"
)

// One entry per wire command of the run. AT commands configure the
// adapter and return raw text; extended commands return segmented CAN
// responses routed through the reassembler.
var commandTable = []obd.Command{
	{Name: "ATSH7E4", Description: "Set CAN module ID to 7E4 - BMS battery information", Request: []byte("ATSH7E4"), ECU: obd.ECUAll},
	{Name: "ATSH7C6", Description: "Set CAN module ID to 7C6 - Odometer information", Request: []byte("ATSH7C6"), ECU: obd.ECUAll},
	{Name: "ATSH7E2", Description: "Set CAN module ID to 7E2 - VMCU information", Request: []byte("ATSH7E2"), ECU: obd.ECUAll},
	{Name: "ATSH7A0", Description: "Set CAN module ID to 7A0 - TPMS information", Request: []byte("ATSH7A0"), ECU: obd.ECUAll},
	{Name: "ATSH7E6", Description: "Set CAN module ID to 7E6 - External temp information", Request: []byte("ATSH7E6"), ECU: obd.ECUAll},
	{Name: "ATCRA7EC", Description: "Set the CAN receive address to 7EC", Request: []byte("ATCRA7EC"), ECU: obd.ECUAll},
	{Name: "ATCRA7EA", Description: "Set the CAN receive address to 7EA", Request: []byte("ATCRA7EA"), ECU: obd.ECUAll},
	{Name: "ATCRA7A8", Description: "Set the CAN receive address to 7A8", Request: []byte("ATCRA7A8"), ECU: obd.ECUAll},
	{Name: "ATCRA7EE", Description: "Set the CAN receive address to 7EE", Request: []byte("ATCRA7EE"), ECU: obd.ECUAll},
	{Name: "ATCF7CE", Description: "Set the CAN filter to 7CE", Request: []byte("ATCF7CE"), ECU: obd.ECUAll},

	{Name: "BMS_2101", Description: "Extended command - BMS Battery information", Request: []byte("2101"), Decode: canbus.ReassembleString, ECU: obd.ECUBattery},
	{Name: "BMS_2102", Description: "Extended command - BMS Battery information", Request: []byte("2102"), Decode: canbus.ReassembleString, ECU: obd.ECUBattery},
	{Name: "BMS_2103", Description: "Extended command - BMS Battery information", Request: []byte("2103"), Decode: canbus.ReassembleString, ECU: obd.ECUBattery},
	{Name: "BMS_2104", Description: "Extended command - BMS Battery information", Request: []byte("2104"), Decode: canbus.ReassembleString, ECU: obd.ECUBattery},
	{Name: "BMS_2105", Description: "Extended command - BMS Battery information", Request: []byte("2105"), Decode: canbus.ReassembleString, ECU: obd.ECUBattery},
	{Name: "ODOMETER", Description: "Extended command - Odometer information", Request: []byte("22b002"), Decode: canbus.ReassembleString, ECU: obd.ECUBody},
	{Name: "VIN", Description: "Extended command - Vehicle Identification Number", Request: []byte("1A80"), Decode: canbus.ReassembleString, ECU: obd.ECUMotorControl},
	{Name: "VMCU_2101", Description: "Extended command - VMCU information", Request: []byte("2101"), Decode: canbus.ReassembleString, ECU: obd.ECUMotorControl},
	{Name: "TPMS_22C00B", Description: "Extended command - TPMS information", Request: []byte("22C00B"), Decode: canbus.ReassembleString, ECU: obd.ECUTirePressure},
	{Name: "EXT_TEMP", Description: "Extended command - External temperature", Request: []byte("2180"), Decode: canbus.ReassembleString, ECU: obd.ECUBody},
}

func registerCommands(r *obd.Registry) {
	for i := range commandTable {
		r.MustRegister(&commandTable[i])
	}
}
