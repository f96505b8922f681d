package state

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"

	"github.com/evtele/evtele/hardware/obd"
	"github.com/evtele/evtele/log2"
	"github.com/evtele/evtele/tele"
)

// Adapter defaults: ELM327 clones ship at 38400, NMEA receivers at 9600.
const (
	DefaultObdBaudrate = 38400
	DefaultGpsBaudrate = 9600
)

type Config struct {
	Hardware struct {
		Obd struct {
			UartDevice        string `hcl:"uart_device"`
			Baudrate          int    `hcl:"baudrate"`
			ConnectTimeoutSec int    `hcl:"connect_timeout_sec"`
			ConnectAttempts   int    `hcl:"connect_attempts"`
			LogEnable         bool   `hcl:"log_enable"`
		}
		Gps struct {
			Enable      bool    `hcl:"enable"`
			UartDevice  string  `hcl:"uart_device"`
			Baudrate    int     `hcl:"baudrate"`
			IntervalSec int     `hcl:"interval_sec"`
			MaxHdop     float64 `hcl:"max_hdop"`
		}
	}
	Tele tele.Config
}

func (c *Config) Init(log *log2.Log) error {
	if c.Hardware.Obd.UartDevice == "" {
		return errors.New("config: obd.uart_device is not set")
	}
	if c.Hardware.Obd.Baudrate == 0 {
		c.Hardware.Obd.Baudrate = DefaultObdBaudrate
	}
	if c.Hardware.Obd.ConnectAttempts == 0 {
		c.Hardware.Obd.ConnectAttempts = obd.DefaultMaxAttempts
	}
	if c.Hardware.Gps.Enable {
		if c.Hardware.Gps.UartDevice == "" {
			return errors.New("config: gps.uart_device is not set")
		}
		if c.Hardware.Gps.Baudrate == 0 {
			c.Hardware.Gps.Baudrate = DefaultGpsBaudrate
		}
	}
	return nil
}

func ReadConfig(r io.Reader, log *log2.Log) (*Config, error) {
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, err
	}
	c := new(Config)
	err = hcl.Unmarshal(b, c)
	if err != nil {
		return nil, err
	}

	if err = c.Init(log); err != nil {
		return nil, err
	}

	return c, nil
}

func ReadConfigFile(path string, log *log2.Log) (*Config, error) {
	if pathAbs, err := filepath.Abs(path); err != nil {
		log.Errorf("filepath.Abs(%s) error=%v", path, err)
	} else {
		path = pathAbs
	}
	log.Debugf("reading config file %s", path)

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadConfig(f, log)
}

func MustReadConfig(r io.Reader, log *log2.Log) *Config {
	c, err := ReadConfig(r, log)
	if err != nil {
		log.Fatal(err)
	}
	return c
}

func MustReadConfigFile(path string, log *log2.Log) *Config {
	c, err := ReadConfigFile(path, log)
	if err != nil {
		log.Fatal(err)
	}
	return c
}

func NewTestConfig(t testing.TB, input string) *Config {
	log := log2.NewTest(t, log2.LDebug)
	log.SetFlags(log2.LTestFlags)
	return MustReadConfig(strings.NewReader(input), log)
}
