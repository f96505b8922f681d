package obd

import (
	"time"

	"github.com/juju/errors"
	"go.bug.st/serial"

	"github.com/evtele/evtele/log2"
)

const promptByte = '>'

// serialUart drives a real adapter through go.bug.st/serial.
type serialUart struct {
	log     *log2.Log
	port    serial.Port
	timeout time.Duration
	buf     [256]byte
}

func NewSerialUart(log *log2.Log) Uarter {
	return &serialUart{log: log}
}

func (self *serialUart) Open(path string, baud int, timeout time.Duration) error {
	if self.port != nil {
		_ = self.port.Close()
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return errors.Trace(err)
	}
	// Short read timeout, the overall deadline is enforced in Tx.
	if err = port.SetReadTimeout(100 * time.Millisecond); err != nil {
		_ = port.Close()
		return errors.Trace(err)
	}
	self.port = port
	self.timeout = timeout
	return nil
}

// Tx writes request+CR then accumulates reply bytes until the adapter
// prompt or the deadline.
func (self *serialUart) Tx(request []byte) (string, error) {
	if self.port == nil {
		return "", errors.New("obd: serial port is not open")
	}
	if err := self.port.ResetInputBuffer(); err != nil {
		return "", errors.Trace(err)
	}
	out := append(append(make([]byte, 0, len(request)+1), request...), '\r')
	if _, err := self.port.Write(out); err != nil {
		return "", errors.Trace(err)
	}

	deadline := time.Now().Add(self.timeout)
	reply := make([]byte, 0, 256)
	for {
		n, err := self.port.Read(self.buf[:])
		if err != nil {
			return "", errors.Trace(err)
		}
		if n > 0 {
			reply = append(reply, self.buf[:n]...)
			if reply[len(reply)-1] == promptByte {
				return string(reply), nil
			}
		}
		if time.Now().After(deadline) {
			return "", errors.Errorf("obd: read timeout after %v, partial=%q", self.timeout, reply)
		}
	}
}

func (self *serialUart) Close() error {
	if self.port == nil {
		return nil
	}
	err := self.port.Close()
	self.port = nil
	return errors.Trace(err)
}
