// Package mqtt publishes lifecycle events to an MQTT broker and answers
// simple status requests from other services.
package mqtt

import (
	"fmt"
	"strings"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/kjfrm085feather/vps-bot/pkg/logger"
)

const topicRoot = "vpsbot"

// EventTopic returns the topic for a lifecycle event kind.
func EventTopic(kind string) string {
	return fmt.Sprintf("%s/events/%s", topicRoot, kind)
}

// RequestTopic returns the topic on which requests named name arrive.
func RequestTopic(name string) string {
	return fmt.Sprintf("%s/request/%s", topicRoot, name)
}

// ResponseTopic returns the topic a response to correlationID goes to.
func ResponseTopic(name, correlationID string) string {
	return fmt.Sprintf("%s/response/%s/%s", topicRoot, name, correlationID)
}

// Event is the envelope of every published lifecycle event.
type Event struct {
	Kind string      `json:"kind"`
	At   int64       `json:"at"`
	Data interface{} `json:"data"`
}

// Request represents an MQTT request message
type Request struct {
	CorrelationID string                 `json:"correlationId"`
	Payload       map[string]interface{} `json:"payload,omitempty"`
}

// Response represents an MQTT response message
type Response struct {
	CorrelationID string      `json:"correlationId"`
	Data          interface{} `json:"data"`
	Error         string      `json:"error,omitempty"`
}

// RequestHandler answers one request.
type RequestHandler func(payload map[string]interface{}) (interface{}, error)

// Bus is the bot's MQTT connection.
type Bus struct {
	client   mqtt.Client
	clientID string
	mu       sync.Mutex
	handlers map[string]RequestHandler
}

var (
	bus  *Bus
	once sync.Once
)

// Init initializes the global bus
func Init(host, port, username, password, clientID string) *Bus {
	once.Do(func() {
		bus = NewBus(host, port, username, password, clientID)
	})
	return bus
}

// Get returns the global bus
func Get() *Bus {
	return bus
}

// NewBus connects to the broker. Connection failures are logged and retried
// by the client in the background.
func NewBus(host, port, username, password, clientID string) *Bus {
	b := &Bus{clientID: clientID, handlers: make(map[string]RequestHandler)}

	uniqueID := fmt.Sprintf("%s_%s", clientID, uuid.New().String())

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID(uniqueID).
		SetUsername(username).
		SetPassword(password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c mqtt.Client) {
			logger.Success(fmt.Sprintf("Conectado al broker MQTT como %s", clientID), "MQTT")
			b.resubscribe()
		}).
		SetConnectionLostHandler(func(c mqtt.Client, err error) {
			logger.Error(fmt.Sprintf("Conexión MQTT perdida: %v", err), "MQTT")
		})

	b.client = mqtt.NewClient(opts)

	token := b.client.Connect()
	if token.WaitTimeout(10*time.Second) && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error de conexión MQTT: %v", token.Error()), "MQTT")
	}
	return b
}

// Destroy closes the MQTT connection
func (b *Bus) Destroy() {
	if b.IsConnected() {
		b.client.Disconnect(250)
		logger.System("Conexión MQTT cerrada exitosamente.", "MQTT")
	}
}

// IsConnected returns true if connected to the broker
func (b *Bus) IsConnected() bool {
	return b.client != nil && b.client.IsConnected()
}

// Publish sends a lifecycle event. Failures are logged; delivery is best
// effort.
func (b *Bus) Publish(kind string, payload interface{}) {
	body, err := encodeEvent(kind, payload, time.Now())
	if err != nil {
		logger.Error(fmt.Sprintf("No se pudo serializar el evento %s: %v", kind, err), "MQTT")
		return
	}
	if !b.IsConnected() {
		logger.Debug(fmt.Sprintf("MQTT desconectado, evento %s descartado", kind), "MQTT")
		return
	}
	b.client.Publish(EventTopic(kind), 1, false, body)
}

func encodeEvent(kind string, payload interface{}, at time.Time) ([]byte, error) {
	return json.Marshal(Event{Kind: kind, At: at.Unix(), Data: payload})
}

// On registers a handler for requests named name and subscribes to them.
func (b *Bus) On(name string, handler RequestHandler) {
	b.mu.Lock()
	b.handlers[name] = handler
	b.mu.Unlock()
	b.subscribe(name, handler)
}

func (b *Bus) resubscribe() {
	b.mu.Lock()
	handlers := make(map[string]RequestHandler, len(b.handlers))
	for name, h := range b.handlers {
		handlers[name] = h
	}
	b.mu.Unlock()

	for name, h := range handlers {
		b.subscribe(name, h)
	}
}

func (b *Bus) subscribe(name string, handler RequestHandler) {
	if !b.IsConnected() {
		return
	}
	topic := RequestTopic(name)
	token := b.client.Subscribe(topic, 0, func(c mqtt.Client, msg mqtt.Message) {
		respTopic, body, err := answer(msg.Topic(), msg.Payload(), handler)
		if err != nil {
			logger.Error(fmt.Sprintf("Error parsing MQTT request: %v", err), "MQTT")
			return
		}
		c.Publish(respTopic, 0, false, body)
	})
	if token.WaitTimeout(5*time.Second) && token.Error() != nil {
		logger.Error(fmt.Sprintf("Error subscribing to topic %s: %v", topic, token.Error()), "MQTT")
	}
}

// answer runs handler for a raw request and returns the response topic and
// body.
func answer(topic string, raw []byte, handler RequestHandler) (string, []byte, error) {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return "", nil, err
	}
	if req.Payload == nil {
		req.Payload = make(map[string]interface{})
	}
	name := strings.TrimPrefix(topic, topicRoot+"/request/")
	req.Payload["_topic"] = name

	resp := Response{CorrelationID: req.CorrelationID}
	data, err := handler(req.Payload)
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Data = data
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return "", nil, err
	}
	return ResponseTopic(name, req.CorrelationID), body, nil
}
