package obd

import (
	"time"

	"github.com/juju/errors"

	"github.com/evtele/evtele/helpers"
	"github.com/evtele/evtele/log2"
)

const DefaultMaxAttempts = 3

// Response to a successfully validated command.
// Bytes is set only for commands with a Decode func.
type Response struct {
	Raw   string
	Bytes []byte
}

type Querier interface {
	Tx(request []byte) (string, error)
}

// Engine issues commands over the shared connection with bounded retry.
// It owns no goroutines: each Query blocks, retry backoff sleeps the
// calling thread, matching the single half-duplex link underneath.
type Engine struct {
	Log         *log2.Log
	MaxAttempts int

	conn  Querier
	sleep func(time.Duration)
}

func NewEngine(conn Querier, log *log2.Log) *Engine {
	return &Engine{
		Log:         log,
		MaxAttempts: DefaultMaxAttempts,
		conn:        conn,
		sleep:       time.Sleep,
	}
}

// SetSleep replaces the backoff sleep, for tests.
func (self *Engine) SetSleep(f func(time.Duration)) { self.sleep = f }

// Query transmits cmd up to MaxAttempts times. A reply is invalid if the
// transport errored or the value is empty, "?" or "NO DATA"; invalid
// attempts back off linearly (1s, 2s, ...). Decode failures are not
// retried: a complete reply that does not reassemble is the group's
// problem, not the link's.
func (self *Engine) Query(cmd *Command) (Response, error) {
	bo := helpers.Backoff{Start: 1 * time.Second, Step: 1 * time.Second}
	var raw string
	valid := false
	for attempt := 1; attempt <= self.MaxAttempts; attempt++ {
		var err error
		raw, err = self.conn.Tx(cmd.Request)
		if err != nil {
			self.Log.Errorf("query %s attempt=%d tx err=%v", cmd.Name, attempt, err)
		} else if validResponse(raw) {
			valid = true
			break
		}
		if attempt < self.MaxAttempts {
			delay := bo.Failure()
			self.Log.Infof("No valid response for %s. Retrying in %v...", cmd.Name, delay)
			self.sleep(delay)
		}
	}
	if !valid {
		return Response{}, NoValidResponse{Command: cmd.Name, Attempts: self.MaxAttempts}
	}

	self.Log.Debugf("%s got response", cmd.Name)
	resp := Response{Raw: raw}
	if cmd.Decode != nil {
		b, err := cmd.Decode(raw)
		if err != nil {
			return resp, errors.Annotate(err, cmd.Name)
		}
		resp.Bytes = b
	}
	return resp, nil
}

func validResponse(raw string) bool {
	switch raw {
	case "", "?", "NO DATA":
		return false
	}
	return true
}
