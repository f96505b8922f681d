package obd

import (
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evtele/evtele/canbus"
	"github.com/evtele/evtele/log2"
)

func testEngine(t testing.TB, u *MockUart) (*Engine, *[]time.Duration) {
	conn := NewConn(u, log2.NewTest(t, log2.LDebug))
	e := NewEngine(conn, conn.Log)
	slept := new([]time.Duration)
	e.SetSleep(func(d time.Duration) { *slept = append(*slept, d) })
	return e, slept
}

func TestQueryFirstTry(t *testing.T) {
	t.Parallel()

	u := NewMockUart().ExpectRaw("ATSH7E4", "OK")
	e, slept := testEngine(t, u)
	resp, err := e.Query(&Command{Name: "ATSH7E4", Request: []byte("ATSH7E4")})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Raw)
	assert.Empty(t, *slept)
}

func TestQueryRetrySucceeds(t *testing.T) {
	t.Parallel()

	u := NewMockUart().Expect("2101",
		MockReply{Raw: "NO DATA"},
		MockReply{Err: errors.New("interface lost")},
		MockReply{Raw: "7EA037F2112AAAAAAAA"},
	)
	e, slept := testEngine(t, u)
	resp, err := e.Query(&Command{Name: "VMCU_2101", Request: []byte("2101")})
	require.NoError(t, err)
	assert.Equal(t, "7EA037F2112AAAAAAAA", resp.Raw)
	// strictly increasing linear backoff
	assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *slept)
}

func TestQueryExhausted(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		reply MockReply
	}{
		{"empty", MockReply{Raw: ""}},
		{"question", MockReply{Raw: "?"}},
		{"nodata", MockReply{Raw: "NO DATA"}},
		{"error", MockReply{Err: errors.New("broken pipe")}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			u := NewMockUart().Expect("2105", c.reply)
			e, slept := testEngine(t, u)
			_, err := e.Query(&Command{Name: "BMS_2105", Request: []byte("2105")})
			require.Error(t, err)
			assert.Equal(t, NoValidResponse{Command: "BMS_2105", Attempts: 3}, errors.Cause(err))
			assert.Equal(t, KindRecoverable, Classify(err))
			assert.Equal(t, []time.Duration{1 * time.Second, 2 * time.Second}, *slept)
		})
	}
}

func TestQueryDecodeNotRetried(t *testing.T) {
	t.Parallel()

	u := NewMockUart().ExpectRaw("22b002", "7CE10")
	e, _ := testEngine(t, u)
	cmd := &Command{Name: "ODOMETER", Request: []byte("22b002"), Decode: canbus.ReassembleString}
	_, err := e.Query(cmd)
	require.Error(t, err)
	assert.IsType(t, canbus.FormatError{}, errors.Cause(err))
	assert.Equal(t, []string{"22b002"}, u.Requests())
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindFatal, Classify(ConnectionError{Status: StatusElmConnected}))
	assert.Equal(t, KindFatal, Classify(errors.Annotate(ConnectionError{Status: StatusNotConnected}, "setup")))
	assert.Equal(t, KindRecoverable, Classify(errors.New("whatever")))
	assert.Equal(t, KindRecoverable, Classify(nil))
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	cmd := &Command{Name: "BMS_2101", Description: "BMS battery information", Request: []byte("2101"), ECU: ECUBattery}
	require.NoError(t, r.Register(cmd))
	assert.Error(t, r.Register(cmd))
	got, ok := r.Get("BMS_2101")
	require.True(t, ok)
	assert.Same(t, cmd, got)
	assert.Error(t, r.Register(&Command{Name: "", Request: []byte("x")}))
	assert.Equal(t, []string{"BMS_2101"}, r.Names())
}
