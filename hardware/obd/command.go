package obd

import (
	"fmt"
	"sort"
	"sync"
)

type ECU uint8

const (
	ECUAll ECU = iota
	ECUEngine
	ECUBattery
	ECUMotorControl
	ECUTirePressure
	ECUBody
)

// DecodeFunc turns the validated raw adapter reply into a byte payload.
// nil means the caller only wants the raw text (AT commands).
type DecodeFunc func(raw string) ([]byte, error)

// Command is an immutable descriptor registered once per session and
// shared read-only by the query engine.
type Command struct {
	Name        string
	Description string
	Request     []byte
	Decode      DecodeFunc
	ECU         ECU
	Fast        bool
}

func (c *Command) String() string { return c.Name }

type Registry struct {
	mu sync.Mutex
	m  map[string]*Command
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[string]*Command, 32)}
}

func (r *Registry) Register(c *Command) error {
	if c.Name == "" || len(c.Request) == 0 {
		return fmt.Errorf("obd: register invalid command %+v", c)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.m[c.Name]; ok {
		return fmt.Errorf("obd: command %s already registered", c.Name)
	}
	r.m[c.Name] = c
	return nil
}

func (r *Registry) MustRegister(c *Command) *Command {
	if err := r.Register(c); err != nil {
		panic(err)
	}
	return c
}

func (r *Registry) Get(name string) (*Command, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.m[name]
	return c, ok
}

func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.m))
	for name := range r.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
