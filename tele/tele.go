// Package tele delivers telemetry records to the MQTT broker.
//
// Contract:
// - Init() fails only on invalid config or unreachable broker
// - PublishAll() is best-effort: failures are logged, never retried
// - Close() disconnects cleanly, pending messages get a short grace
package tele

import (
	"crypto/tls"
	"crypto/x509"
	"io/ioutil"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/juju/errors"

	"github.com/evtele/evtele/helpers"
	"github.com/evtele/evtele/log2"
)

const (
	defaultNetworkTimeout = 30 * time.Second
	defaultClientId       = "evtele"
)

// Msg is one retained telemetry message for the publish boundary.
type Msg struct {
	TopicSuffix string
	Payload     []byte
	Qos         byte
	Retain      bool
}

type Tele struct {
	Log *log2.Log

	enabled        bool
	m              mqtt.Client
	topicPrefix    string
	networkTimeout time.Duration
}

func (self *Tele) Init(log *log2.Log, teleConfig Config) error {
	self.Log = log.Clone(log2.LInfo)
	if teleConfig.LogDebug {
		self.Log.SetLevel(log2.LDebug)
	}
	self.enabled = teleConfig.Enabled
	if !self.enabled {
		return nil
	}

	clientId := teleConfig.ClientId
	if clientId == "" {
		clientId = defaultClientId
	}
	self.topicPrefix = teleConfig.TopicPrefix
	self.networkTimeout = helpers.IntSecondDefault(teleConfig.NetworkTimeoutSec, defaultNetworkTimeout)
	keepalive := helpers.IntSecondDefault(teleConfig.KeepaliveSec, self.networkTimeout/2)

	tlsconf := new(tls.Config)
	if teleConfig.TlsCaFile != "" {
		tlsconf.RootCAs = x509.NewCertPool()
		cabytes, err := ioutil.ReadFile(teleConfig.TlsCaFile)
		if err != nil {
			return errors.Annotate(err, "tele tls_ca_file")
		}
		tlsconf.RootCAs.AppendCertsFromPEM(cabytes)
	}

	opt := mqtt.NewClientOptions().
		AddBroker(teleConfig.Broker).
		SetAutoReconnect(true).
		SetCleanSession(true).
		SetClientID(clientId).
		SetConnectTimeout(self.networkTimeout).
		SetCredentialsProvider(func() (string, string) { return teleConfig.User, teleConfig.Password }).
		SetKeepAlive(keepalive).
		SetOrderMatters(true).
		SetPingTimeout(self.networkTimeout).
		SetTLSConfig(tlsconf).
		SetWriteTimeout(self.networkTimeout)
	self.m = mqtt.NewClient(opt)

	t := self.m.Connect()
	if err := self.tokenWait(t, "connect"); err != nil {
		return errors.Annotate(err, "tele connect")
	}
	return nil
}

// Publish sends one message, used by the periodic GPS stream.
func (self *Tele) Publish(msg Msg) error {
	if !self.enabled {
		return nil
	}
	topic := self.topicPrefix + msg.TopicSuffix
	t := self.m.Publish(topic, msg.Qos, msg.Retain, msg.Payload)
	return self.tokenWait(t, "publish "+topic)
}

// PublishAll delivers the end-of-run batch, best-effort: a failed message
// is logged and the rest still go out. The folded error is informational,
// nothing gets retried.
func (self *Tele) PublishAll(msgs []Msg) error {
	if !self.enabled {
		return nil
	}
	sent := 0
	errs := make([]error, 0, len(msgs))
	for _, msg := range msgs {
		self.Log.Infof("tele publish topic=%s%s payload=%s", self.topicPrefix, msg.TopicSuffix, msg.Payload)
		if err := self.Publish(msg); err == nil {
			sent++
		} else {
			errs = append(errs, err)
		}
	}
	self.Log.Infof("%d message(s) published to MQTT", sent)
	return helpers.FoldErrors(errs)
}

func (self *Tele) Close() {
	if !self.enabled || self.m == nil {
		return
	}
	self.m.Disconnect(uint(self.networkTimeout / time.Millisecond))
}

func (self *Tele) tokenWait(t mqtt.Token, tag string) error {
	if !t.WaitTimeout(self.networkTimeout) {
		err := errors.Errorf("%s timeout", tag)
		self.Log.Errorf("tele: MQTT %s", err.Error())
		return err
	}
	if err := t.Error(); err != nil {
		err = errors.Annotate(err, tag)
		self.Log.Errorf("tele: MQTT %s", err.Error())
		return err
	}
	return nil
}
