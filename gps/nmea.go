package gps

import (
	"strconv"
	"strings"

	"github.com/juju/errors"
)

const knotsToMs = 0.514444

// Fix accumulates the latest values seen across RMC and GGA sentences.
// RMC carries speed and track, GGA carries the dilution of precision.
type Fix struct {
	Latitude  float64
	Longitude float64
	Speed     float64 // m/s
	Track     float64 // degrees
	Hdop      float64

	hasPosition bool
	hasHdop     bool
}

// parseCoord converts NMEA ddmm.mmmm to decimal degrees. Longitude
// degrees are 3 digits, latitude 2; the hemisphere letter tells which.
func parseCoord(value, dir string) (float64, error) {
	if len(value) < 4 {
		return 0, errors.Errorf("invalid nmea coord %q", value)
	}
	degDigits := 3
	if dir == "N" || dir == "S" {
		degDigits = 2
	}
	deg, err := strconv.ParseFloat(value[:degDigits], 64)
	if err != nil {
		return 0, errors.Trace(err)
	}
	min, err := strconv.ParseFloat(value[degDigits:], 64)
	if err != nil {
		return 0, errors.Trace(err)
	}
	dec := deg + min/60.0
	if dir == "S" || dir == "W" {
		dec = -dec
	}
	return dec, nil
}

// Update folds one NMEA sentence into the fix. Unknown or void sentences
// are ignored without error, the stream is full of them.
func (self *Fix) Update(line string) {
	line = strings.TrimSpace(line)
	if i := strings.IndexByte(line, '*'); i >= 0 {
		line = line[:i]
	}
	parts := strings.Split(line, ",")
	if len(parts) < 9 {
		return
	}
	switch {
	case strings.HasSuffix(parts[0], "RMC"):
		if parts[2] != "A" { // void fix
			return
		}
		lat, err1 := parseCoord(parts[3], parts[4])
		lon, err2 := parseCoord(parts[5], parts[6])
		if err1 != nil || err2 != nil {
			return
		}
		self.Latitude, self.Longitude = lat, lon
		self.hasPosition = true
		if v, err := strconv.ParseFloat(parts[7], 64); err == nil {
			self.Speed = v * knotsToMs
		}
		if v, err := strconv.ParseFloat(parts[8], 64); err == nil {
			self.Track = v
		}
	case strings.HasSuffix(parts[0], "GGA"):
		lat, err1 := parseCoord(parts[2], parts[3])
		lon, err2 := parseCoord(parts[4], parts[5])
		if err1 == nil && err2 == nil {
			self.Latitude, self.Longitude = lat, lon
			self.hasPosition = true
		}
		if v, err := strconv.ParseFloat(parts[8], 64); err == nil {
			self.Hdop = v
			self.hasHdop = true
		}
	}
}

// Valid reports whether the fix has a position accurate enough to
// publish. With maxHdop <= 0 the accuracy gate is off.
func (self *Fix) Valid(maxHdop float64) bool {
	if !self.hasPosition {
		return false
	}
	if maxHdop > 0 && (!self.hasHdop || self.Hdop > maxHdop) {
		return false
	}
	return true
}
