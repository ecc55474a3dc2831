package reporter

import (
	"context"
	"fmt"
	"strings"
	"time"

	dm "github.com/andrej220/hamagent/pkg/shared-models"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DeviceIDPlaceholder in an MQTT topic is replaced with the record's device id.
const DeviceIDPlaceholder = "{device_id}"

type MQTTReporter struct {
	client mqtt.Client
	topic  string
	qos    byte
}

// NewMQTTReporter connects to broker and publishes on topic.
func NewMQTTReporter(broker, clientID, topic string, qos byte) (*MQTTReporter, error) {
	if clientID == "" {
		clientID = fmt.Sprintf("ham-agent-%d", time.Now().UnixNano())
	}
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, token.Error())
	}
	return newMQTTReporter(client, topic, qos), nil
}

func newMQTTReporter(client mqtt.Client, topic string, qos byte) *MQTTReporter {
	return &MQTTReporter{client: client, topic: topic, qos: qos}
}

func (m *MQTTReporter) topicFor(rec dm.ResultRecord) string {
	return strings.ReplaceAll(m.topic, DeviceIDPlaceholder, rec.DeviceID)
}

func (m *MQTTReporter) Report(ctx context.Context, rec dm.ResultRecord) error {
	payload, err := Encode(rec)
	if err != nil {
		return err
	}
	token := m.client.Publish(m.topicFor(rec), m.qos, false, payload)
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

func (m *MQTTReporter) Close() error {
	m.client.Disconnect(250)
	return nil
}
