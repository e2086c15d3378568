// Package mqttsvc implements the device command channel over MQTT.
// Commands are fire-and-forget: the backend never blocks a state change on
// a device acknowledgment, and a dead broker degrades command delivery
// without taking the API down.
package mqttsvc

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"

	"github.com/smartclass/attendance/core"
	"github.com/smartclass/attendance/core/command"
)

// QoS 1: the broker must take the message; duplicate delivery to the device
// is acceptable, the device treats commands idempotently.
const publishQoS = 1

type Client struct {
	client         mqtt.Client
	connectTimeout time.Duration
	publishTimeout time.Duration
	log            core.Logger
}

var _ command.Channel = (*Client)(nil)

func NewClient(conf *core.Config, log core.Logger) *Client {
	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%d", conf.Broker.Host, conf.Broker.Port)).
		SetClientID(conf.Broker.ClientID).
		SetUsername(conf.Broker.Username).
		SetPassword(conf.Broker.Password).
		SetConnectTimeout(conf.Broker.ConnectTimeout).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(mqtt.Client) {
			log.Info("mqtt: connected to broker " + conf.Broker.Host)
		}).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			log.Warn(fmt.Sprintf("mqtt: connection lost: %v", err))
		})

	return &Client{
		client:         mqtt.NewClient(opts),
		connectTimeout: conf.Broker.ConnectTimeout,
		publishTimeout: conf.Broker.PublishTimeout,
		log:            log,
	}
}

func (c *Client) Connect() error {
	tok := c.client.Connect()
	if !tok.WaitTimeout(c.connectTimeout) {
		return errors.New("mqtt: connect timeout")
	}
	return errors.Wrap(tok.Error(), "mqtt: connect")
}

func (c *Client) Disconnect() {
	c.client.Disconnect(250) // ms grace for in-flight messages
}

// Publish sends a command envelope to a classroom's device topic. It
// reports local acceptance only; a false return means the command did not
// leave this process.
func (c *Client) Publish(classroomID, kind string, params command.Params) bool {
	if !c.client.IsConnected() {
		c.log.Warn("mqtt: not connected, dropping command " + kind + " for " + classroomID)
		return false
	}

	payload, err := json.Marshal(command.NewEnvelope(kind, params))
	if err != nil {
		c.log.Error(fmt.Sprintf("mqtt: encoding %s command: %v", kind, err), err)
		return false
	}

	tok := c.client.Publish(command.Topic(classroomID), publishQoS, false, payload)
	if !tok.WaitTimeout(c.publishTimeout) {
		c.log.Warn("mqtt: publish timeout for " + kind + " to " + classroomID)
		return false
	}
	if err := tok.Error(); err != nil {
		c.log.Error(fmt.Sprintf("mqtt: publishing %s to %s: %v", kind, classroomID, err), err)
		return false
	}
	return true
}
