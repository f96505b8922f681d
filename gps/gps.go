// Package gps streams location fixes from an NMEA serial receiver to the
// publish boundary. The poller owns two tasks: a reader folding sentences
// into the current fix and a ticker publishing it at a fixed interval.
// It shares nothing with the OBD side beyond the MQTT connection.
package gps

import (
	"bufio"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	serial "go.bug.st/serial"

	"github.com/evtele/evtele/log2"
	"github.com/evtele/evtele/tele"
	"github.com/evtele/evtele/telemetry"
)

var timeNow = time.Now

type Poller struct {
	Log      *log2.Log
	Interval time.Duration
	MaxHdop  float64
	Publish  func(tele.Msg) error

	alive *alive.Alive

	mu      sync.Mutex
	fix     Fix
	prevLat float64
	prevLon float64
	port    io.Closer
}

func NewPoller(log *log2.Log, interval time.Duration, maxHdop float64, publish func(tele.Msg) error) *Poller {
	return &Poller{
		Log:      log,
		Interval: interval,
		MaxHdop:  maxHdop,
		Publish:  publish,
		alive:    alive.NewAlive(),
	}
}

// Start opens the receiver port and launches the reader and publisher
// tasks. Stop() shuts both down.
func (self *Poller) Start(device string, baud int) error {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return errors.Annotatef(err, "gps open device=%s baud=%d", device, baud)
	}
	self.start(port)
	return nil
}

func (self *Poller) start(rc io.ReadCloser) {
	self.mu.Lock()
	self.port = rc
	self.mu.Unlock()
	self.alive.Add(2)
	go self.readLoop(rc)
	go self.publishLoop()
}

// Stop signals both tasks and waits for them. Closing the port unblocks
// the reader mid-read.
func (self *Poller) Stop() {
	self.alive.Stop()
	self.mu.Lock()
	port := self.port
	self.mu.Unlock()
	if port != nil {
		_ = port.Close()
	}
	self.alive.Wait()
}

func (self *Poller) readLoop(rc io.ReadCloser) {
	defer self.alive.Done()
	r := bufio.NewReader(rc)
	for self.alive.IsRunning() {
		line, err := r.ReadString('\n')
		if err != nil {
			if !self.alive.IsRunning() || err == io.EOF {
				return
			}
			time.Sleep(200 * time.Millisecond)
			continue
		}
		self.mu.Lock()
		self.fix.Update(line)
		self.mu.Unlock()
	}
}

func (self *Poller) publishLoop() {
	defer self.alive.Done()
	tick := time.NewTicker(self.Interval)
	defer tick.Stop()
	stop := self.alive.StopChan()
	for {
		select {
		case <-stop:
			return
		case <-tick.C:
			self.publishOnce()
		}
	}
}

func (self *Poller) publishOnce() {
	rec, ok := self.snapshot()
	if !ok {
		self.Log.Debugf("gps: no publishable fix yet")
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		self.Log.Errorf("gps marshal err=%v", err)
		return
	}
	self.Log.Infof("GPS position fixed. Publishing to MQTT: %s", payload)
	if err := self.Publish(tele.Msg{TopicSuffix: "location", Payload: payload, Qos: 0, Retain: true}); err != nil {
		self.Log.Errorf("gps publish err=%v", err)
	}
}

// snapshot freezes the current fix into a location record and rolls the
// previous-position fields used to measure distance between updates.
func (self *Poller) snapshot() (telemetry.Record, bool) {
	self.mu.Lock()
	defer self.mu.Unlock()
	if !self.fix.Valid(self.MaxHdop) {
		if self.fix.hasPosition {
			self.Log.Infof("gps: location not accurate enough: hdop=%.1f max=%.1f", self.fix.Hdop, self.MaxHdop)
		}
		return nil, false
	}
	rec := telemetry.Record{
		"latitude":    self.fix.Latitude,
		"longitude":   self.fix.Longitude,
		"hdop":        self.fix.Hdop,
		"speed":       self.fix.Speed,
		"track":       self.fix.Track,
		"last_update": timeNow().Unix(),
	}
	if self.prevLat != 0 || self.prevLon != 0 {
		rec["platitude"] = self.prevLat
		rec["plongitude"] = self.prevLon
	}
	self.prevLat, self.prevLon = self.fix.Latitude, self.fix.Longitude
	return rec, true
}
