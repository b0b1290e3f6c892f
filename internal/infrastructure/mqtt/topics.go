package mqtt

import "fmt"

// TopicPrefix is the base for all inventory event topics.
// Scheme: inventory/event/{entity}/{ulid}
const TopicPrefix = "inventory"

// Topics provides builders for inventory MQTT topics.
// Using these helpers keeps topic naming consistent across the codebase.
type Topics struct{}

// DeviceTypeCreated returns the event topic for a newly registered device type.
//
// Example: inventory/event/device-type/01HZX3P5Q8VJT9GZJ0M4N6W2KD
func (Topics) DeviceTypeCreated(id string) string {
	return fmt.Sprintf("%s/event/device-type/%s", TopicPrefix, id)
}

// DeviceCreated returns the event topic for a newly created device.
//
// Example: inventory/event/device/01HZX3P5Q8VJT9GZJ0M4N6W2KD
func (Topics) DeviceCreated(id string) string {
	return fmt.Sprintf("%s/event/device/%s", TopicPrefix, id)
}
