// Package mqttchan feeds the push channel from an MQTT broker. Deployments
// that fan board events out over a broker instead of the WebSocket endpoint
// plug this transport into the realtime client; reconnection stays with the
// client, so paho's own auto-reconnect is disabled.
package mqttchan

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/haulplan/haulplan/core/logger"
	"github.com/haulplan/haulplan/core/realtime"
)

// Config defines the broker connection parameters.
type Config struct {
	Broker     string `json:"broker"`
	ClientID   string `json:"client_id"`
	Username   string `json:"username"`
	Password   string `json:"password"`
	Topic      string `json:"topic"`
	PingTopic  string `json:"ping_topic"`
	QoS        byte   `json:"qos"`
	UseTLS     bool   `json:"use_tls"`
	ClientCert string `json:"client_cert"`
	ClientKey  string `json:"client_key"`
	CABundle   string `json:"ca_bundle"`

	TLSConfig *tls.Config `json:"-"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.ClientID == "" {
		c.ClientID = "haulplan-" + uuid.NewString()[:8]
	}
	if c.Topic == "" {
		c.Topic = "board/events"
	}
	if c.PingTopic == "" {
		c.PingTopic = "board/ping"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Broker == "" {
		return fmt.Errorf("mqtt broker is required")
	}
	return nil
}

// LoadTLSConfig loads the TLS configuration from the file paths in the config.
func (c Config) LoadTLSConfig() (*tls.Config, error) {
	if c.TLSConfig != nil {
		return c.TLSConfig, nil
	}
	if c.ClientCert == "" || c.ClientKey == "" || c.CABundle == "" {
		return nil, fmt.Errorf("tls config requires client_cert, client_key and ca_bundle")
	}
	cert, err := tls.LoadX509KeyPair(c.ClientCert, c.ClientKey)
	if err != nil {
		return nil, fmt.Errorf("load cert: %w", err)
	}
	caBytes, err := os.ReadFile(c.CABundle)
	if err != nil {
		return nil, fmt.Errorf("read ca: %w", err)
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(caBytes)
	return &tls.Config{Certificates: []tls.Certificate{cert}, RootCAs: pool, MinVersion: tls.VersionTLS12}, nil
}

// Transport opens one broker connection per realtime attempt.
type Transport struct {
	cfg Config
	log logger.Logger
}

// New creates a Transport.
func New(cfg Config, log logger.Logger) *Transport {
	cfg.SetDefaults()
	return &Transport{cfg: cfg, log: log}
}

// Open connects to the broker and subscribes to the board topic.
func (t *Transport) Open(ctx context.Context) (realtime.Conn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := paho.NewClientOptions().AddBroker(t.cfg.Broker).SetClientID(t.cfg.ClientID)
	opts.AutoReconnect = false
	if t.cfg.Username != "" {
		opts.SetUsername(t.cfg.Username)
	}
	if t.cfg.Password != "" {
		opts.SetPassword(t.cfg.Password)
	}
	if t.cfg.UseTLS {
		tlsCfg, err := t.cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	mc := &mqttConn{
		frames:    make(chan []byte, 64),
		lost:      make(chan error, 1),
		pingTopic: t.cfg.PingTopic,
		qos:       t.cfg.QoS,
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		select {
		case mc.lost <- err:
		default:
		}
	}

	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect broker: %w", token.Error())
	}
	mc.cli = cli
	if token := cli.Subscribe(t.cfg.Topic, t.cfg.QoS, mc.onMessage); token.Wait() && token.Error() != nil {
		cli.Disconnect(250)
		return nil, fmt.Errorf("subscribe %s: %w", t.cfg.Topic, token.Error())
	}
	t.log.Debugf("subscribed to %s", t.cfg.Topic)
	return mc, nil
}

type mqttConn struct {
	cli       paho.Client
	frames    chan []byte
	lost      chan error
	pingTopic string
	qos       byte
}

func (c *mqttConn) onMessage(_ paho.Client, msg paho.Message) {
	payload := append([]byte(nil), msg.Payload()...)
	select {
	case c.frames <- payload:
	default:
		// a stalled reader sheds frames; the next bulk_update converges
	}
}

func (c *mqttConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.frames:
		return data, nil
	case err := <-c.lost:
		if err == nil {
			return nil, realtime.ErrCleanClosed
		}
		return nil, fmt.Errorf("broker connection lost: %w", err)
	}
}

func (c *mqttConn) WriteMessage(data []byte) error {
	token := c.cli.Publish(c.pingTopic, c.qos, false, data)
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		return token.Error()
	}
	return nil
}

func (c *mqttConn) Close(clean bool) error {
	if c.cli != nil && c.cli.IsConnected() {
		c.cli.Disconnect(250)
	}
	if clean {
		select {
		case c.lost <- nil:
		default:
		}
	}
	return nil
}
