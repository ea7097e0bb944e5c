package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/bryanwahyu/ayursense/internal/domain/reading"
)

const publishTimeout = 2 * time.Second

// Publisher mirrors readings to an MQTT topic as JSON.
type Publisher struct {
	client paho.Client
	topic  string
}

// NewPublisher connects to broker. Reconnects are handled by the client.
func NewPublisher(broker, clientID, topic string) (*Publisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	c := paho.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return &Publisher{client: c, topic: topic}, nil
}

// NewPublisherWithClient wraps an already configured client.
func NewPublisherWithClient(c paho.Client, topic string) *Publisher {
	return &Publisher{client: c, topic: topic}
}

func (p *Publisher) Publish(r reading.Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshal reading: %w", err)
	}
	token := p.client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish to %s timed out", p.topic)
	}
	return token.Error()
}

func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
