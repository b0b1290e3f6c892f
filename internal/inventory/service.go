package inventory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ferrolab/inventory-core/internal/infrastructure/database"
	"github.com/ferrolab/inventory-core/internal/infrastructure/logging"
	"github.com/ferrolab/inventory-core/internal/infrastructure/mqtt"
	"github.com/ferrolab/inventory-core/internal/ulid"
)

// EventPublisher publishes post-commit notifications for mutating
// operations. Implementations must not block indefinitely; failures are
// logged and never roll back the committed transaction.
type EventPublisher interface {
	PublishEvent(topic string, payload []byte) error
}

// Service is the transactional allocation engine.
//
// Every mutating operation runs as one atomic unit of work: begin a
// transaction, perform the mutation, append its history entry, commit.
// A failure at any step rolls back all of it.
//
// The write mutex serialises mutations within the process. Together with
// the single-connection pool (database.Open) it guarantees the allocator's
// scan-then-insert sequence never interleaves with another writer.
type Service struct {
	db       *database.DB
	gen      *ulid.Generator
	recorder *Recorder
	log      *logging.Logger
	events   EventPublisher

	writeMu sync.Mutex
}

// New creates an inventory service on an open database.
func New(db *database.DB) *Service {
	gen := ulid.New()
	return &Service{
		db:       db,
		gen:      gen,
		recorder: NewRecorder(gen),
		log:      logging.Default(),
	}
}

// SetLogger replaces the default logger.
func (s *Service) SetLogger(log *logging.Logger) {
	s.log = log.With("component", "inventory")
}

// SetEventPublisher enables post-commit event publishing. Pass nil to
// disable (the default).
func (s *Service) SetEventPublisher(pub EventPublisher) {
	s.events = pub
}

// AttributeDecl declares one attribute when registering a device type.
type AttributeDecl struct {
	Name         string
	Multiplicity string
}

// RegisterDeviceTypeInput carries the fields of a new device type.
// PartNumber and ManufacturerName are required; the rest are optional.
type RegisterDeviceTypeInput struct {
	PartNumber       string
	ManufacturerName string
	Model            string
	Descriptor       string
	SerialNumberSpec string
	Attributes       []AttributeDecl
}

// RegisterDeviceType creates a device type, its declared attributes, and a
// CREATE_DEVICE_TYPE history entry in a single transaction.
//
// The serial number spec is stored as given, without validation: a type may
// be registered before its numbering scheme is settled, and a malformed
// spec only surfaces when automatic allocation is first requested.
func (s *Service) RegisterDeviceType(ctx context.Context, input RegisterDeviceTypeInput) (*DeviceType, error) {
	if input.PartNumber == "" {
		return nil, fmt.Errorf("%w: part number is required", ErrInvalidInput)
	}
	if input.ManufacturerName == "" {
		return nil, fmt.Errorf("%w: manufacturer name is required", ErrInvalidInput)
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // No-op if committed

	store := NewStore(tx)

	id, err := s.gen.Next()
	if err != nil {
		return nil, fmt.Errorf("generating device type ulid: %w", err)
	}

	dt := &DeviceType{
		ULID:             id,
		PartNumber:       input.PartNumber,
		ManufacturerName: input.ManufacturerName,
		Model:            input.Model,
		Descriptor:       input.Descriptor,
		SerialNumberSpec: input.SerialNumberSpec,
	}
	if err := store.InsertDeviceType(ctx, dt); err != nil {
		return nil, err
	}

	for _, decl := range input.Attributes {
		attrID, err := s.gen.Next()
		if err != nil {
			return nil, fmt.Errorf("generating attribute ulid: %w", err)
		}
		attr := &TypeAttribute{
			ULID:          attrID,
			DeviceType:    dt.ULID,
			AttributeName: decl.Name,
			Multiplicity:  decl.Multiplicity,
		}
		if err := store.InsertTypeAttribute(ctx, attr); err != nil {
			return nil, err
		}
	}

	comment := dt.ManufacturerName + "/" + dt.PartNumber
	if _, err := s.recorder.Record(ctx, store, dt.ULID, OpCreateDeviceType, comment); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing device type: %w", err)
	}

	s.log.Info("device type registered",
		"ulid", dt.ULID,
		"part_number", dt.PartNumber,
		"manufacturer", dt.ManufacturerName,
	)
	s.publish(mqtt.Topics{}.DeviceTypeCreated(dt.ULID), dt)

	return dt, nil
}

// CreatedDevice is one row of a CreateDevices result.
type CreatedDevice struct {
	DeviceULID   string `json:"device_ulid"`
	SerialNumber string `json:"serial"`
}

// CreateDevicesInput carries a device creation request. Exactly one of
// SerialNumber (explicit, Count must be 1) or automatic allocation from the
// type's serial number spec applies.
type CreateDevicesInput struct {
	PartNumber   string
	SerialNumber string
	Count        int
}

// CreateDevices creates one or more devices of a registered type in a
// single transaction, together with one CREATE_DEVICE history entry per
// device. If any insert fails the whole batch rolls back.
//
// With an explicit serial the count must be one; otherwise each serial is
// allocated from the type's spec by rescanning the type's serials inside
// the transaction, so a batch sees its own earlier allocations.
func (s *Service) CreateDevices(ctx context.Context, input CreateDevicesInput) ([]CreatedDevice, error) {
	if input.PartNumber == "" {
		return nil, fmt.Errorf("%w: part number is required", ErrInvalidInput)
	}
	if input.Count < 1 {
		return nil, fmt.Errorf("%w: count must be at least 1", ErrInvalidInput)
	}
	if input.SerialNumber != "" && input.Count > 1 {
		return nil, ErrAmbiguousSerial
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback() //nolint:errcheck // No-op if committed

	store := NewStore(tx)

	dt, err := store.GetDeviceTypeByPartNumber(ctx, input.PartNumber)
	if err != nil {
		return nil, err
	}

	var spec *SerialSpec
	if input.SerialNumber == "" {
		spec, err = ParseSerialSpec(dt.SerialNumberSpec)
		if err != nil {
			return nil, err
		}
	}

	created := make([]CreatedDevice, 0, input.Count)
	for i := 0; i < input.Count; i++ {
		serial := input.SerialNumber
		if spec != nil {
			// Rescan inside the transaction: earlier devices of this batch
			// are visible and feed the next allocation.
			existing, err := store.SerialNumbersByType(ctx, dt.ULID)
			if err != nil {
				return nil, err
			}
			serial = spec.Next(existing)
		} else {
			exists, err := store.SerialNumberExists(ctx, serial)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateSerial, serial)
			}
		}

		id, err := s.gen.Next()
		if err != nil {
			return nil, fmt.Errorf("generating device ulid: %w", err)
		}

		dev := &Device{
			ULID:         id,
			DeviceType:   dt.ULID,
			PartNumber:   dt.PartNumber,
			SerialNumber: serial,
		}
		if err := store.InsertDevice(ctx, dev); err != nil {
			return nil, err
		}

		comment := dev.PartNumber + "/" + dev.SerialNumber
		if _, err := s.recorder.Record(ctx, store, dev.ULID, OpCreateDevice, comment); err != nil {
			return nil, err
		}

		created = append(created, CreatedDevice{
			DeviceULID:   dev.ULID,
			SerialNumber: dev.SerialNumber,
		})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing devices: %w", err)
	}

	s.log.Info("devices created",
		"part_number", dt.PartNumber,
		"count", len(created),
	)
	for _, c := range created {
		s.publish(mqtt.Topics{}.DeviceCreated(c.DeviceULID), c)
	}

	return created, nil
}

// FindDevices returns devices matching the filter. Reads run outside the
// write lock, directly against the pool.
func (s *Service) FindDevices(ctx context.Context, filter DeviceFilter) ([]DeviceView, error) {
	return NewStore(s.db.DB).FindDevices(ctx, filter)
}

// ListHistory returns history entries matching the filter, most recent
// first.
func (s *Service) ListHistory(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error) {
	return NewStore(s.db.DB).ListHistory(ctx, filter)
}

// ListTypeAttributes returns the attributes declared for the type with the
// given part number.
func (s *Service) ListTypeAttributes(ctx context.Context, partNumber string) ([]TypeAttribute, error) {
	store := NewStore(s.db.DB)
	dt, err := store.GetDeviceTypeByPartNumber(ctx, partNumber)
	if err != nil {
		return nil, err
	}
	return store.ListTypeAttributes(ctx, dt.ULID)
}

// publish sends a post-commit event. Failures are logged, never returned:
// the mutation is already committed.
func (s *Service) publish(topic string, payload any) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Warn("marshalling event payload", "topic", topic, "error", err)
		return
	}
	if err := s.events.PublishEvent(topic, data); err != nil {
		s.log.Warn("publishing event", "topic", topic, "error", err)
	}
}
