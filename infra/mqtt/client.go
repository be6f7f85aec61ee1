// Package mqtt implements the planner's MQTT front-end link on Eclipse Paho:
// the current plan is published retained on <prefix>/plan, diagnostics on
// <prefix>/diagnostics, and user commands arrive on <prefix>/command.
package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	coremon "github.com/kilianp07/nightplan/core/monitoring"
	coremqtt "github.com/kilianp07/nightplan/core/mqtt"
	"github.com/kilianp07/nightplan/core/model"
	"github.com/kilianp07/nightplan/infra/logger"
)

const (
	topicPlan        = "plan"
	topicDiagnostics = "diagnostics"
	topicCommand     = "command"
	topicStatus      = "status"
)

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient implements Publisher and CommandSource using Eclipse Paho.
type PahoClient struct {
	cli     pahoClient
	cfg     Config
	logger  logger.Logger
	backoff time.Duration

	mu      sync.RWMutex
	handler coremqtt.CommandHandler
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the broker. The command topic is (re)subscribed
// on every connect.
func NewPahoClient(cfg Config) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_client")
	pc := &PahoClient{cfg: cfg, logger: log, backoff: time.Duration(cfg.BackoffMS) * time.Millisecond}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		if token := c.Subscribe(cfg.Topic(topicCommand), cfg.qos("command"), pc.onCommand); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe error: %v", token.Error())
		}
		c.Publish(cfg.Topic(topicStatus), 1, true, "online")
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config. The status topic
// carries a retained "offline" will.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.TopicPrefix != "" {
		opts.SetWill(cfg.Topic(topicStatus), "offline", 1, true)
	}
	return opts, nil
}

// OnCommand installs the command handler.
func (p *PahoClient) OnCommand(h coremqtt.CommandHandler) {
	p.mu.Lock()
	p.handler = h
	p.mu.Unlock()
}

func (p *PahoClient) onCommand(_ paho.Client, msg paho.Message) {
	cmd, err := DecodeCommand(msg.Payload())
	if err != nil {
		p.logger.Warnf("rejected command: %v", err)
		return
	}
	p.mu.RLock()
	h := p.handler
	p.mu.RUnlock()
	if h == nil {
		p.logger.Warnf("command %s dropped, no handler", cmd.ID)
		return
	}
	if err := h(cmd); err != nil {
		p.logger.Errorf("command %s %s failed: %v", cmd.ID, cmd.Action, err)
		return
	}
	p.logger.Infof("command %s %s handled", cmd.ID, cmd.Action)
}

// DecodeCommand parses and validates a command payload. A missing id is
// replaced by a fresh uuid.
func DecodeCommand(payload []byte) (coremqtt.Command, error) {
	var cmd coremqtt.Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return cmd, fmt.Errorf("decode command: %w", err)
	}
	cmd.Action = cmd.Kind()
	if cmd.ID == "" {
		cmd.ID = uuid.NewString()
	}
	return cmd, cmd.Validate()
}

// PublishSchedule publishes the plan retained so a front end joining late
// receives the current one.
func (p *PahoClient) PublishSchedule(msg coremqtt.PlanMessage) error {
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.publish(p.cfg.Topic(topicPlan), p.cfg.qos("plan"), true, payload, map[string]string{"pass_id": msg.PassID})
}

// PublishDiagnostics publishes the diagnostics of a pass.
func (p *PahoClient) PublishDiagnostics(passID string, diags []model.Diagnostic) error {
	payload, err := json.Marshal(struct {
		MessageID   string             `json:"message_id"`
		PassID      string             `json:"pass_id"`
		Diagnostics []model.Diagnostic `json:"diagnostics"`
		Timestamp   int64              `json:"timestamp"`
	}{uuid.NewString(), passID, diags, time.Now().UnixMilli()})
	if err != nil {
		return err
	}
	return p.publish(p.cfg.Topic(topicDiagnostics), p.cfg.qos("diagnostics"), false, payload, map[string]string{"pass_id": passID})
}

// publish retries with exponential backoff and reports the final failure.
func (p *PahoClient) publish(topic string, qos byte, retained bool, payload []byte, tags map[string]string) error {
	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published %d bytes to %s", len(payload), topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d to %s failed: %v", attempt+1, topic, publishErr)
		if attempt < p.cfg.MaxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	t := map[string]string{"module": "mqtt", "topic": topic}
	for k, v := range tags {
		t[k] = v
	}
	coremon.CaptureException(publishErr, t)
	return publishErr
}

// Disconnect marks the planner offline and closes the connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Publish(p.cfg.Topic(topicStatus), 1, true, "offline").Wait()
		p.cli.Disconnect(250)
	}
}
