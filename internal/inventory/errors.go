package inventory

import "errors"

// Domain errors for the inventory package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, inventory.ErrDuplicateSerial) {
//	    // handle conflict case
//	}
var (
	// ErrInvalidInput is returned when a required field is missing or malformed.
	ErrInvalidInput = errors.New("inventory: invalid input")

	// ErrDuplicatePartNumber is returned when registering a device type whose
	// part number already exists.
	ErrDuplicatePartNumber = errors.New("inventory: part number already registered")

	// ErrUnknownDeviceType is returned when no device type matches the given
	// part number.
	ErrUnknownDeviceType = errors.New("inventory: unknown device type")

	// ErrDuplicateSerial is returned when a serial number is already in use
	// by any device, of any type.
	ErrDuplicateSerial = errors.New("inventory: serial number already in use")

	// ErrAmbiguousSerial is returned when an explicit serial is combined with
	// a batch count greater than one.
	ErrAmbiguousSerial = errors.New("inventory: explicit serial cannot be combined with count > 1")

	// ErrDuplicateAttribute is returned when a device type attribute name is
	// declared twice for the same type.
	ErrDuplicateAttribute = errors.New("inventory: attribute already declared for device type")

	// ErrNoSerialSpec is returned when automatic allocation is requested for
	// a device type without a serial number spec.
	ErrNoSerialSpec = errors.New("inventory: device type has no serial number spec")

	// ErrMalformedSerialSpec is returned when a serial number spec lacks a
	// valid {n} placeholder.
	ErrMalformedSerialSpec = errors.New("inventory: serial number spec must contain a {n} placeholder")
)
