// evtele queries EV telemetry over an ELM327-style OBD-II adapter and
// publishes it to MQTT. One invocation is one telemetry pass; with the
// GPS receiver enabled the process stays up streaming location fixes
// until interrupted.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/mattn/go-isatty"

	"github.com/evtele/evtele/gps"
	"github.com/evtele/evtele/hardware/obd"
	"github.com/evtele/evtele/helpers"
	"github.com/evtele/evtele/log2"
	"github.com/evtele/evtele/session"
	"github.com/evtele/evtele/state"
	"github.com/evtele/evtele/tele"
)

var log = log2.NewStderr(log2.LDebug)

func main() {
	flagConfig := flag.String("config", "evtele.hcl", "")
	flag.Parse()

	if sdnotify("start") {
		// under systemd, journal logging, remove timestamp
		log.SetFlags(log2.LServiceFlags)
	} else if isatty.IsTerminal(os.Stderr.Fd()) {
		log.SetFlags(log2.LInteractiveFlags)
	}
	log.Info("=== evtele start ===")

	config := state.MustReadConfigFile(*flagConfig, log)

	t := new(tele.Tele)
	if err := t.Init(log, config.Tele); err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	defer t.Close()

	var poller *gps.Poller
	if config.Hardware.Gps.Enable {
		g := config.Hardware.Gps
		interval := helpers.IntSecondDefault(g.IntervalSec, 10*time.Second)
		poller = gps.NewPoller(log, interval, g.MaxHdop, t.Publish)
		if err := poller.Start(g.UartDevice, g.Baudrate); err != nil {
			log.Fatal(errors.ErrorStack(err))
		}
		defer poller.Stop()
	}

	msgs, err := run(config)
	if perr := t.PublishAll(msgs); perr != nil {
		log.Errorf("publish err=%v", perr)
	}
	if err != nil {
		log.Errorf("run err=%v", errors.ErrorStack(err))
	}
	sdnotify(daemon.SdNotifyReady)

	if poller != nil {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Infof("signal %v, stopping", sig)
	}
	sdnotify(daemon.SdNotifyStopping)
	log.Info("=== evtele end ===")
}

// run performs one full telemetry pass. Whatever messages exist by the
// time of a fatal error are still returned for best-effort publish; a
// failed connect still yields the retained state message.
func run(config *state.Config) ([]tele.Msg, error) {
	msgs := []tele.Msg{session.StateMessage()}

	c := config.Hardware.Obd
	connLog := log.Clone(log2.LInfo)
	if c.LogEnable {
		connLog.SetLevel(log2.LDebug)
	}
	conn := obd.NewConn(obd.NewSerialUart(connLog), connLog)
	timeout := helpers.IntSecondDefault(c.ConnectTimeoutSec, obd.DefaultConnectTimeout)
	if err := conn.ConnectRetry(c.UartDevice, c.Baudrate, timeout, c.ConnectAttempts); err != nil {
		return msgs, errors.Annotate(err, "obd connect")
	}
	defer conn.Close()

	s := session.New(conn, connLog)
	return s.Run()
}

func sdnotify(s string) bool {
	ok, err := daemon.SdNotify(false, s)
	if err != nil {
		log.Fatal("sdnotify: ", errors.ErrorStack(err))
	}
	return ok
}
