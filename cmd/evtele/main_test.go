package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evtele/evtele/hardware/obd"
	"github.com/evtele/evtele/session"
	"github.com/evtele/evtele/state"
)

func TestRunConnectFailureStillYieldsState(t *testing.T) {
	cfg := state.NewTestConfig(t,
		`hardware { obd { uart_device = "/dev/nonexistent-evtele-test" connect_attempts = 1 } }`)
	msgs, err := run(cfg)
	require.Error(t, err)
	assert.Equal(t, obd.KindFatal, obd.Classify(err))
	// the retained state message survives a dead adapter
	require.Len(t, msgs, 1)
	assert.Equal(t, session.StateMessage(), msgs[0])
}
