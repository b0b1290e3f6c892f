// Package mqtt publishes inventory events to an MQTT broker.
//
// The event feed is optional and disabled by default. When enabled, each
// successfully committed mutating operation publishes one JSON event per
// created entity under inventory/event/. Publishing happens after commit and
// never affects the outcome of the database operation.
package mqtt
