package obd

// Scripted Uarter to test query/session code without hardware.

import (
	"sync"
	"time"
)

type MockReply struct {
	Raw string
	Err error
}

// MockUart replays canned replies per request. The last reply for a
// request repeats; a request without a script entry gets an empty reply,
// which the query engine treats as invalid.
type MockUart struct {
	mu       sync.Mutex
	script   map[string][]MockReply
	requests []string
}

func NewMockUart() *MockUart {
	return &MockUart{script: make(map[string][]MockReply)}
}

func (self *MockUart) Expect(request string, replies ...MockReply) *MockUart {
	self.mu.Lock()
	defer self.mu.Unlock()
	self.script[request] = append(self.script[request], replies...)
	return self
}

func (self *MockUart) ExpectRaw(request, raw string) *MockUart {
	return self.Expect(request, MockReply{Raw: raw})
}

// Requests returns every request seen, in order.
func (self *MockUart) Requests() []string {
	self.mu.Lock()
	defer self.mu.Unlock()
	rs := make([]string, len(self.requests))
	copy(rs, self.requests)
	return rs
}

func (self *MockUart) Open(path string, baud int, timeout time.Duration) error { return nil }

func (self *MockUart) Tx(request []byte) (string, error) {
	self.mu.Lock()
	defer self.mu.Unlock()
	req := string(request)
	self.requests = append(self.requests, req)
	q := self.script[req]
	if len(q) == 0 {
		return "", nil
	}
	r := q[0]
	if len(q) > 1 {
		self.script[req] = q[1:]
	}
	return r.Raw, r.Err
}

func (self *MockUart) Close() error { return nil }
