package obd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evtele/evtele/log2"
)

func scriptInit(u *MockUart) {
	for _, at := range initSequence {
		u.ExpectRaw(at, "OK")
	}
}

func TestConnectStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		probe  string
		status string
	}{
		{"car", "4100BE3FA813", StatusCarConnected},
		{"no-car", "NO DATA", StatusElmConnected},
		{"unable", "UNABLE TO CONNECT", StatusElmConnected},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			u := NewMockUart()
			scriptInit(u)
			u.ExpectRaw("0100", c.probe)
			conn := NewConn(u, log2.NewTest(t, log2.LDebug))
			require.NoError(t, conn.Connect("/dev/null", 38400, time.Second))
			assert.Equal(t, c.status, conn.Status())
			require.NoError(t, conn.Close())
			assert.Equal(t, StatusNotConnected, conn.Status())
		})
	}
}

func TestConnectStatusConcurrentRead(t *testing.T) {
	t.Parallel()

	u := NewMockUart()
	scriptInit(u)
	u.ExpectRaw("0100", "4100BE3FA813")
	conn := NewConn(u, log2.NewTest(t, log2.LDebug))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = conn.Status()
		}
	}()
	require.NoError(t, conn.Connect("/dev/null", 38400, time.Second))
	<-done
	assert.Equal(t, StatusCarConnected, conn.Status())
}
