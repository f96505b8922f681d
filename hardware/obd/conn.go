package obd

import (
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"

	"github.com/evtele/evtele/helpers"
	"github.com/evtele/evtele/log2"
)

// Adapter connection states, coarse on purpose: the session only ever
// checks for StatusCarConnected.
const (
	StatusNotConnected = "Not Connected"
	StatusElmConnected = "ELM Connected"
	StatusCarConnected = "Car Connected"
)

const DefaultConnectTimeout = 30 * time.Second

// Uarter abstracts the half-duplex serial link to the OBD-II adapter.
// Tx writes one request and reads the whole reply up to the adapter prompt.
type Uarter interface {
	Open(path string, baud int, timeout time.Duration) error
	Tx(request []byte) (string, error)
	Close() error
}

// Init sequence for ELM327-style adapters: reset, echo/linefeed/spaces off,
// headers on (the reassembler needs identifiers), force CAN 11bit/500k.
var initSequence = [...]string{"ATZ", "ATE0", "ATL0", "ATS0", "ATH1", "ATSP6"}

// Conn owns the single shared adapter link. All commands of a run go
// through Tx, one at a time.
type Conn struct {
	Log *log2.Log

	io     Uarter
	lk     sync.Mutex
	status string
}

func NewConn(u Uarter, log *log2.Log) *Conn {
	return &Conn{Log: log, io: u, status: StatusNotConnected}
}

// Connect opens the port and performs one adapter init + car probe attempt.
func (self *Conn) Connect(port string, baud int, timeout time.Duration) error {
	if timeout == 0 {
		timeout = DefaultConnectTimeout
	}
	if err := self.io.Open(port, baud, timeout); err != nil {
		return errors.Annotatef(err, "obd open port=%s baud=%d", port, baud)
	}
	self.setStatus(StatusElmConnected)
	for _, at := range initSequence {
		if _, err := self.Tx([]byte(at)); err != nil {
			return errors.Annotatef(err, "obd init %s", at)
		}
	}
	probe, err := self.Tx([]byte("0100"))
	if err != nil {
		return errors.Annotate(err, "obd probe 0100")
	}
	if strings.Contains(probe, "UNABLE TO CONNECT") || strings.Contains(probe, "NO DATA") {
		return nil
	}
	self.setStatus(StatusCarConnected)
	return nil
}

func (self *Conn) setStatus(s string) {
	self.lk.Lock()
	self.status = s
	self.lk.Unlock()
}

// ConnectRetry repeats Connect with linear backoff until the car answers.
// Mirrors the per-query retry policy: sleep 1s, 2s, ... between attempts.
func (self *Conn) ConnectRetry(port string, baud int, timeout time.Duration, maxAttempts int) error {
	bo := helpers.Backoff{Start: 1 * time.Second, Step: 1 * time.Second}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := self.Connect(port, baud, timeout)
		if err == nil && self.Status() == StatusCarConnected {
			return nil
		}
		if err != nil {
			self.Log.Errorf("obd connect attempt=%d/%d err=%v", attempt, maxAttempts, err)
		}
		if attempt < maxAttempts {
			delay := bo.Failure()
			self.Log.Infof("%s. Retrying in %v...", self.Status(), delay)
			time.Sleep(delay)
		}
	}
	return ConnectionError{Status: self.Status()}
}

func (self *Conn) Status() string {
	self.lk.Lock()
	defer self.lk.Unlock()
	return self.status
}

// Tx sends one command and returns the cleaned reply text.
func (self *Conn) Tx(request []byte) (string, error) {
	self.lk.Lock()
	defer self.lk.Unlock()

	raw, err := self.io.Tx(request)
	self.Log.Debugf("obd.Tx > %s < %q err=%v", request, raw, err)
	if err != nil {
		return "", errors.Trace(err)
	}
	return cleanResponse(raw), nil
}

func (self *Conn) Close() error {
	self.lk.Lock()
	defer self.lk.Unlock()
	self.status = StatusNotConnected
	return self.io.Close()
}

// cleanResponse drops the prompt, empty lines and SEARCHING... noise,
// normalizes line ends.
func cleanResponse(raw string) string {
	raw = strings.ReplaceAll(raw, "\r", "\n")
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, ">"))
		if line == "" || line == "SEARCHING..." {
			continue
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
