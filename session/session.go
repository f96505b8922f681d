// Package session sequences the telemetry groups over the single shared
// adapter connection: per group SETUP (headers, receive address, filter),
// QUERY (extended commands), DECODE, then one message for the publish
// boundary. Groups run strictly one after another, a failed group is
// skipped without touching the rest.
package session

import (
	"encoding/json"

	"github.com/juju/errors"
	"github.com/temoto/atomic_clock"

	"github.com/evtele/evtele/hardware/obd"
	"github.com/evtele/evtele/log2"
	"github.com/evtele/evtele/tele"
	"github.com/evtele/evtele/telemetry"
)

// Session is the explicit run context: connection, engine, registry and
// log travel together instead of package globals.
type Session struct {
	Log    *log2.Log
	Engine *obd.Engine

	cmds *obd.Registry
}

type group struct {
	name  string // also the topic suffix
	setup []string
	query func(s *Session) (telemetry.Record, error)
}

// Fixed group order, matching the established publish cadence.
var groups = []group{
	{"battery", []string{"ATSH7E4", "ATCRA7EC"}, (*Session).queryBattery},
	{"vmcu", []string{"ATSH7E2", "ATCRA7EA"}, (*Session).queryVMCU},
	{"odometer", []string{"ATSH7C6", "ATCRA7EC", "ATCF7CE"}, (*Session).queryOdometer},
	{"tpms", []string{"ATCRA7A8", "ATSH7A0"}, (*Session).queryTPMS},
	{"ext_temp", []string{"ATSH7E6", "ATCRA7EE"}, (*Session).queryExternalTemperature},
}

func New(conn obd.Querier, log *log2.Log) *Session {
	s := &Session{
		Log:    log,
		Engine: obd.NewEngine(conn, log),
		cmds:   NewRegistry(),
	}
	return s
}

// NewRegistry returns the full command registry of a telemetry session.
func NewRegistry() *obd.Registry {
	r := obd.NewRegistry()
	registerCommands(r)
	return r
}

// StateMessage is the retained vehicle-state message heading every run.
// It exists before any connection does, so a failed connect can still
// publish it best-effort.
func StateMessage() tele.Msg {
	return tele.Msg{TopicSuffix: "state", Payload: []byte("ON"), Qos: 0, Retain: true}
}

// Run executes all groups and returns the messages to publish. The
// returned error is only ever fatal-for-run; per-group failures are
// logged and swallowed here, at the group boundary.
func (self *Session) Run() ([]tele.Msg, error) {
	msgs := make([]tele.Msg, 0, len(groups)+1)
	msgs = append(msgs, StateMessage())

	for _, g := range groups {
		rec, err := self.runGroup(g)
		if err != nil {
			if obd.Classify(err) == obd.KindFatal {
				return msgs, errors.Annotatef(err, "group %s", g.name)
			}
			self.Log.Errorf("**** Error querying %s information: %v ****", g.name, err)
			continue
		}
		payload, err := json.Marshal(rec)
		if err != nil {
			self.Log.Errorf("group %s marshal err=%v", g.name, err)
			continue
		}
		msgs = append(msgs, tele.Msg{TopicSuffix: g.name, Payload: payload, Qos: 0, Retain: true})
	}
	return msgs, nil
}

func (self *Session) runGroup(g group) (telemetry.Record, error) {
	self.Log.Infof("**** Querying %s information ****", g.name)
	begin := atomic_clock.Now()
	for _, name := range g.setup {
		if _, err := self.query(name); err != nil {
			return nil, errors.Annotatef(err, "setup %s", name)
		}
	}
	rec, err := g.query(self)
	if err != nil {
		return nil, errors.Trace(err)
	}
	self.Log.Infof("**** Got %s information **** (%v)", g.name, atomic_clock.Since(begin))
	return rec, nil
}

func (self *Session) query(name string) (obd.Response, error) {
	cmd, ok := self.cmds.Get(name)
	if !ok {
		panic("code error session: unknown command " + name)
	}
	return self.Engine.Query(cmd)
}

func (self *Session) queryBattery() (telemetry.Record, error) {
	var p telemetry.BatteryPayloads
	for _, q := range []struct {
		name string
		dst  *[]byte
	}{
		{"BMS_2101", &p.B2101},
		{"BMS_2102", &p.B2102},
		{"BMS_2103", &p.B2103},
		{"BMS_2104", &p.B2104},
		{"BMS_2105", &p.B2105},
	} {
		resp, err := self.query(q.name)
		if err != nil {
			return nil, errors.Trace(err)
		}
		*q.dst = resp.Bytes
	}
	return telemetry.DecodeBattery(p)
}

func (self *Session) queryVMCU() (telemetry.Record, error) {
	vin, err := self.query("VIN")
	if err != nil {
		return nil, errors.Trace(err)
	}
	r2101, err := self.query("VMCU_2101")
	if err != nil {
		return nil, errors.Trace(err)
	}
	return telemetry.DecodeVMCU(vin.Bytes, r2101.Bytes)
}

func (self *Session) queryOdometer() (telemetry.Record, error) {
	resp, err := self.query("ODOMETER")
	if err != nil {
		return nil, errors.Trace(err)
	}
	return telemetry.DecodeOdometer(resp.Bytes)
}

func (self *Session) queryTPMS() (telemetry.Record, error) {
	resp, err := self.query("TPMS_22C00B")
	if err != nil {
		return nil, errors.Trace(err)
	}
	return telemetry.DecodeTPMS(resp.Bytes)
}

func (self *Session) queryExternalTemperature() (telemetry.Record, error) {
	resp, err := self.query("EXT_TEMP")
	if err != nil {
		return nil, errors.Trace(err)
	}
	return telemetry.DecodeExternalTemperature(resp.Bytes)
}
