package progress

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"strconv"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	DEFAULT_BROKER = "broker.emqx.io"
	DEFAULT_PORT   = 1883
	TOPIC_PREFIX   = "org/ges2wpmz/progress"
)

/* Test brokers
   test.mosquitto.org 1883, 8883 8080, 8081 (ws)
   broker.hivemq.com  1883, 8000 (ws)
   broker.emqx.io    1883, 8883, 8083, 8084 (ws)
*/

// BrokerConfig is a parsed broker URI,
// mqtt[s]|ws[s]://[user[:pass]@]host[:port]/topic[?cafile=file]
type BrokerConfig struct {
	Scheme string
	Host   string
	Port   int
	Topic  string
	User   string
	Passwd string
	CAFile string
}

// Broker is the paho form of the address, scheme://host:port[/mqtt]
func (b BrokerConfig) Broker() string {
	mpath := ""
	if b.Scheme == "ws" || b.Scheme == "wss" {
		mpath = "/mqtt"
	}
	return fmt.Sprintf("%s://%s:%d%s", b.Scheme, b.Host, b.Port, mpath)
}

func ParseBroker(uri string) (BrokerConfig, error) {
	var bc BrokerConfig
	u, err := url.Parse(uri)
	if err != nil {
		return bc, errors.Wrapf(err, "broker %q", uri)
	}

	switch u.Scheme {
	case "mqtt", "tcp", "":
		bc.Scheme = "tcp"
	case "mqtts", "ssl":
		bc.Scheme = "ssl"
	case "ws", "wss":
		bc.Scheme = u.Scheme
	default:
		return bc, errors.Errorf("broker %q: unsupported scheme %q", uri, u.Scheme)
	}

	bc.Host = u.Hostname()
	if bc.Host == "" {
		bc.Host = DEFAULT_BROKER
	}
	bc.Port, _ = strconv.Atoi(u.Port())
	if bc.Port == 0 {
		bc.Port = DEFAULT_PORT
	}
	if len(u.Path) > 1 {
		bc.Topic = u.Path[1:]
	}
	if u.User != nil {
		bc.User = u.User.Username()
		bc.Passwd, _ = u.User.Password()
	}
	bc.CAFile = u.Query().Get("cafile")
	if bc.CAFile != "" && bc.Scheme == "tcp" {
		bc.Scheme = "ssl"
	}
	return bc, nil
}

func tls_config(bc BrokerConfig) (*tls.Config, error) {
	if bc.Scheme != "ssl" && bc.Scheme != "wss" {
		return nil, nil
	}
	conf := &tls.Config{ClientAuth: tls.NoClientCert}
	if bc.CAFile != "" {
		ca, err := os.ReadFile(bc.CAFile)
		if err != nil {
			return nil, errors.Wrap(err, "cafile")
		}
		certpool := x509.NewCertPool()
		certpool.AppendCertsFromPEM(ca)
		conf.RootCAs = certpool
	}
	if len(os.Getenv("NOVERIFYSSL")) > 0 {
		conf.InsecureSkipVerify = true
	}
	return conf, nil
}

type MQTTClient struct {
	client mqtt.Client
	topic  string
}

// NewMQTTClient connects to the broker named by uri. A missing topic is
// replaced by a random one under TOPIC_PREFIX.
func NewMQTTClient(uri string) (*MQTTClient, error) {
	bc, err := ParseBroker(uri)
	if err != nil {
		return nil, err
	}
	if bc.Topic == "" {
		bc.Topic = fmt.Sprintf("%s/_%x", TOPIC_PREFIX, rand.Int())
		log.Info().Str("topic", bc.Topic).Msg("using random topic")
	}
	tlsconf, err := tls_config(bc)
	if err != nil {
		return nil, err
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(bc.Broker())
	opts.SetTLSConfig(tlsconf)
	opts.SetClientID(fmt.Sprintf("%x", rand.Int63()))
	opts.SetUsername(bc.User)
	opts.SetPassword(bc.Passwd)
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Warn().Err(err).Msg("mqtt connection lost")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, errors.Wrapf(token.Error(), "connect %s", bc.Broker())
	}
	log.Debug().Str("broker", bc.Broker()).Msg("mqtt connected")
	return &MQTTClient{client: client, topic: bc.Topic}, nil
}

func (m *MQTTClient) Topic() string {
	return m.topic
}

func (m *MQTTClient) Publish(msg string) error {
	token := m.client.Publish(m.topic, 0, false, msg)
	token.Wait()
	return token.Error()
}

func (m *MQTTClient) Close() {
	m.client.Disconnect(250)
}
