package rabbitmq

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// IPublisher is the publish side used by the advisory service.
type IPublisher interface {
	PublishMessage(topic string, message interface{}) error
	Close()
}

// Publisher publishes JSON payloads on topics under a template such as
// "event/advisoryGenerated/{farm}".
type Publisher struct {
	client    mqtt.Client
	topicTmpl string
}

// NewPublisher wraps the shared MQTT client. topicTmpl may contain a
// "{farm}" placeholder filled by Topic.
func NewPublisher(client mqtt.Client, topicTmpl string) *Publisher {
	return &Publisher{client: client, topicTmpl: topicTmpl}
}

// Topic expands the publisher's topic template for a farm id.
func (p *Publisher) Topic(farmID string) string {
	return strings.ReplaceAll(p.topicTmpl, "{farm}", farmID)
}

// PublishMessage marshals message to JSON and publishes it at QoS 0.
// Advisory events are best-effort notifications.
func (p *Publisher) PublishMessage(topic string, message interface{}) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	token := p.client.Publish(topic, 0, false, payload)
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("failed to publish message: %v", token.Error())
	}

	log.Printf("Message published to topic '%s'", topic)
	return nil
}

// Close gracefully closes the MQTT connection for the publisher.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
		log.Println("MQTT client disconnected")
	}
}
