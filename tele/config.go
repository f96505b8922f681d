package tele

type Config struct { //nolint:maligned
	Enabled           bool   `hcl:"enable"`
	Broker            string `hcl:"broker"`
	ClientId          string `hcl:"client_id"`
	User              string `hcl:"user"`
	Password          string `hcl:"password"` // secret
	TopicPrefix       string `hcl:"topic_prefix"`
	TlsCaFile         string `hcl:"tls_ca_file"`
	KeepaliveSec      int    `hcl:"keepalive_sec"`
	NetworkTimeoutSec int    `hcl:"network_timeout_sec"`
	LogDebug          bool   `hcl:"log_debug"`
}
