package session

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evtele/evtele/hardware/obd"
	"github.com/evtele/evtele/log2"
	"github.com/evtele/evtele/tele"
)

// frameLines renders a payload the way the adapter would: 19-char raw
// lines, single frame when it fits, first+consecutive otherwise.
func frameLines(id string, payload []byte) string {
	pad := func(s string) string {
		for len(s) < 19 {
			s += "0"
		}
		return s
	}
	if len(payload) <= 7 {
		return pad(fmt.Sprintf("%s0%X%X", id, len(payload), payload))
	}
	lines := []string{pad(fmt.Sprintf("%s1%03X%X", id, len(payload), payload[:6]))}
	rest := payload[6:]
	for idx := 1; len(rest) > 0; idx = (idx + 1) % 0x10 {
		n := len(rest)
		if n > 7 {
			n = 7
		}
		lines = append(lines, pad(fmt.Sprintf("%s2%X%X", id, idx, rest[:n])))
		rest = rest[n:]
	}
	return strings.Join(lines, "\n")
}

type fixtures struct {
	bms2101, bms2105, cells []byte
	vin, vmcu2101           []byte
	odo, tpms, ext          []byte
}

func testFixtures() fixtures {
	f := fixtures{
		bms2101:  make([]byte, 61),
		bms2105:  make([]byte, 40),
		cells:    make([]byte, 38),
		vin:      make([]byte, 33),
		vmcu2101: make([]byte, 17),
		odo:      make([]byte, 12),
		tpms:     make([]byte, 21),
		ext:      make([]byte, 15),
	}
	f.bms2101[55], f.bms2101[56] = 0x13, 0x88         // driveMotorSpeed 5000
	f.bms2105[27], f.bms2105[28] = 0x03, 0xB6         // soh 95.0
	copy(f.vin[16:], "KMHC851HFKU123456")
	f.vmcu2101[7] = 0x9                               // gear PD
	f.odo[9], f.odo[10], f.odo[11] = 0x01, 0xD1, 0xF2 // 119282 km
	f.tpms[7] = 160                                   // front left 32.0 psi
	f.ext[14] = 120                                   // 20.0 C
	return f
}

// testSession wires a scripted adapter behind a real Conn+Engine.
// overrides replace the default reply for a request, e.g. "NO DATA".
func testSession(t testing.TB, f fixtures, overrides map[string]string) (*Session, *obd.MockUart) {
	u := obd.NewMockUart()
	expect := func(request, raw string) {
		if o, ok := overrides[request]; ok {
			raw = o
		}
		u.ExpectRaw(request, raw)
	}
	for _, at := range []string{"ATSH7E4", "ATSH7C6", "ATSH7E2", "ATSH7A0", "ATSH7E6",
		"ATCRA7EC", "ATCRA7EA", "ATCRA7A8", "ATCRA7EE", "ATCF7CE"} {
		expect(at, "OK")
	}
	// 2101 is shared: battery group consumes the first reply, VMCU the second
	expect("2101", frameLines("7EC", f.bms2101))
	expect("2101", frameLines("7EA", f.vmcu2101))
	for _, req := range []string{"2102", "2103", "2104"} {
		expect(req, frameLines("7EC", f.cells))
	}
	expect("2105", frameLines("7EC", f.bms2105))
	expect("1A80", frameLines("7EA", f.vin))
	expect("22b002", frameLines("7CE", f.odo))
	expect("22C00B", frameLines("7A8", f.tpms))
	expect("2180", frameLines("7EE", f.ext))

	conn := obd.NewConn(u, log2.NewTest(t, log2.LDebug))
	s := New(conn, conn.Log)
	s.Engine.SetSleep(func(time.Duration) {})
	return s, u
}

func topics(msgs []tele.Msg) []string {
	ts := make([]string, len(msgs))
	for i, m := range msgs {
		ts[i] = m.TopicSuffix
	}
	return ts
}

func TestRunAllGroups(t *testing.T) {
	t.Parallel()
	s, u := testSession(t, testFixtures(), nil)
	msgs, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, []string{"state", "battery", "vmcu", "odometer", "tpms", "ext_temp"}, topics(msgs))
	assert.Equal(t, "ON", string(msgs[0].Payload))
	for _, m := range msgs {
		assert.True(t, m.Retain)
		assert.Equal(t, byte(0), m.Qos)
	}

	var battery map[string]interface{}
	require.NoError(t, json.Unmarshal(msgs[1].Payload, &battery))
	assert.Equal(t, 95.0, battery["soh"])
	assert.Equal(t, 5000.0, battery["driveMotorSpeed"])

	var vmcu map[string]interface{}
	require.NoError(t, json.Unmarshal(msgs[2].Payload, &vmcu))
	assert.Equal(t, "KMHC851HFKU123456", vmcu["vin"])
	assert.Equal(t, "PD", vmcu["gear"])

	var odo map[string]interface{}
	require.NoError(t, json.Unmarshal(msgs[3].Payload, &odo))
	assert.Equal(t, 119282.0, odo["odometer"])

	// strict sequential wire order over the shared connection
	assert.Equal(t, []string{
		"ATSH7E4", "ATCRA7EC", "2101", "2102", "2103", "2104", "2105",
		"ATSH7E2", "ATCRA7EA", "1A80", "2101",
		"ATSH7C6", "ATCRA7EC", "ATCF7CE", "22b002",
		"ATCRA7A8", "ATSH7A0", "22C00B",
		"ATSH7E6", "ATCRA7EE", "2180",
	}, u.Requests())
}

func TestRunSkipsInconsistentBattery(t *testing.T) {
	t.Parallel()
	f := testFixtures()
	f.bms2105[27], f.bms2105[28] = 0x03, 0xF2 // soh 101.0, garbage read
	s, _ := testSession(t, f, nil)
	msgs, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, []string{"state", "vmcu", "odometer", "tpms", "ext_temp"}, topics(msgs))
}

func TestRunSkipsGroupWithoutResponse(t *testing.T) {
	t.Parallel()
	s, u := testSession(t, testFixtures(), map[string]string{"22b002": "NO DATA"})
	msgs, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, []string{"state", "battery", "vmcu", "tpms", "ext_temp"}, topics(msgs))

	// all three attempts went to the wire before the group was dropped
	n := 0
	for _, req := range u.Requests() {
		if req == "22b002" {
			n++
		}
	}
	assert.Equal(t, obd.DefaultMaxAttempts, n)
}

func TestRunSkipsGroupOnDecodeError(t *testing.T) {
	t.Parallel()
	// complete reply that does not reassemble: truncated first frame
	s, u := testSession(t, testFixtures(), map[string]string{"2180": "7EE100F610080000000"})
	msgs, err := s.Run()
	require.NoError(t, err)
	assert.Equal(t, []string{"state", "battery", "vmcu", "odometer", "tpms"}, topics(msgs))

	// decode failures are not retried
	n := 0
	for _, req := range u.Requests() {
		if req == "2180" {
			n++
		}
	}
	assert.Equal(t, 1, n)
}
