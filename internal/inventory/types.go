package inventory

import "time"

// Operation tags recorded in history entries.
const (
	OpCreateDeviceType = "CREATE_DEVICE_TYPE"
	OpCreateDevice     = "CREATE_DEVICE"
)

// DeviceType is a catalog entry describing a class of hardware, identified
// by manufacturer and part number. The part number is globally unique.
type DeviceType struct {
	ULID             string `json:"ulid"`
	PartNumber       string `json:"part_number"`
	ManufacturerName string `json:"manufacturer_name"`
	Model            string `json:"model,omitempty"`
	Descriptor       string `json:"descriptor,omitempty"`
	SerialNumberSpec string `json:"serial_number_spec,omitempty"`
}

// TypeAttribute declares a named attribute that devices of a type may
// carry. (device_type, attribute_name) is unique; the row is owned by its
// DeviceType and removed with it.
type TypeAttribute struct {
	ULID          string `json:"ulid"`
	DeviceType    string `json:"device_type"`
	AttributeName string `json:"attribute_name"`
	Multiplicity  string `json:"multiplicity"`
}

// Device is one physical instance of a device type. The part number is a
// denormalised copy of the type's part number at creation time; the serial
// number is unique across all devices of all types.
type Device struct {
	ULID         string `json:"ulid"`
	DeviceType   string `json:"device_type"`
	PartNumber   string `json:"part_number"`
	SerialNumber string `json:"serial_number"`
}

// DeviceAttribute is one typed key/value on a device, owned by the device
// and removed with it.
type DeviceAttribute struct {
	ULID          string `json:"ulid"`
	Device        string `json:"device"`
	AttributeType string `json:"attribute_type"`
	AttributeName string `json:"attribute_name"`
	Value         string `json:"value"`
}

// DeviceView is the read model returned by FindDevices: a device joined
// with its type's model and manufacturer.
type DeviceView struct {
	ULID             string `json:"ulid"`
	DeviceType       string `json:"device_type"`
	PartNumber       string `json:"part_number"`
	SerialNumber     string `json:"serial_number"`
	Model            string `json:"model,omitempty"`
	ManufacturerName string `json:"manufacturer_name"`
}

// HistoryEntry is an immutable audit record of a single mutating operation.
// EntityULID references the affected entity by identifier value only, with
// no foreign key, so history survives entity deletion.
type HistoryEntry struct {
	ULID       string    `json:"ulid"`
	EntityULID string    `json:"entity_ulid"`
	Timestamp  time.Time `json:"timestamp"`
	Operation  string    `json:"operation"`
	Comment    string    `json:"comment"`
}
