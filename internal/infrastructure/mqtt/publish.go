package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// maxPayloadSize caps message payloads at 1MB, aligning with typical
// broker limits.
const maxPayloadSize = 1 << 20

// Publish sends a message to the specified MQTT topic.
//
// Retained messages are stored by the broker and delivered to new
// subscribers immediately; use them for state topics (parameter values,
// system status), not for events.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishRetained publishes a retained message with the configured
// default QoS.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}

// PublishParameterUpdate publishes a parameter value to its state
// topic, retained so late subscribers see the current value.
func (c *Client) PublishParameterUpdate(component, parameter string, value any) error {
	payload, err := json.Marshal(map[string]any{
		"component": component,
		"parameter": parameter,
		"value":     value,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("%w: encoding parameter update: %w", ErrPublishFailed, err)
	}

	topic := Topics{}.ParameterState(component, parameter)
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}

// PublishAcquisitionSample publishes one acquisition sample. Samples
// are events, not state, so they are never retained.
func (c *Client) PublishAcquisitionSample(instrument string, sample any) error {
	payload, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("%w: encoding acquisition sample: %w", ErrPublishFailed, err)
	}

	topic := Topics{}.Acquisition(instrument)
	return c.Publish(topic, payload, byte(c.cfg.QoS), false)
}
