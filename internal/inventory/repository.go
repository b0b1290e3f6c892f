package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx. The
// store runs the same queries inside a transaction during mutations and
// directly against the pool for reads.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store executes inventory queries against SQLite.
type Store struct {
	db dbtx
}

// NewStore creates a store bound to a database handle or an open transaction.
func NewStore(db dbtx) *Store {
	return &Store{db: db}
}

// isUniqueConstraintError reports whether err is a SQLite UNIQUE constraint
// violation. go-sqlite3 exposes these only through the error text.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// InsertDeviceType inserts a device type row. A part number collision maps
// to ErrDuplicatePartNumber.
func (s *Store) InsertDeviceType(ctx context.Context, dt *DeviceType) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_type (ulid, part_number, manufacturer_name, model, descriptor, serial_number_spec)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		dt.ULID, dt.PartNumber, dt.ManufacturerName,
		nullableString(dt.Model), nullableString(dt.Descriptor), nullableString(dt.SerialNumberSpec),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: %q", ErrDuplicatePartNumber, dt.PartNumber)
	}
	if err != nil {
		return fmt.Errorf("inserting device type: %w", err)
	}
	return nil
}

// InsertTypeAttribute declares an attribute on a device type. A duplicate
// (device_type, attribute_name) pair maps to ErrDuplicateAttribute.
func (s *Store) InsertTypeAttribute(ctx context.Context, attr *TypeAttribute) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_type_attribute (ulid, device_type, attribute_name, multiplicity)
		 VALUES (?, ?, ?, ?)`,
		attr.ULID, attr.DeviceType, attr.AttributeName, attr.Multiplicity,
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: %q", ErrDuplicateAttribute, attr.AttributeName)
	}
	if err != nil {
		return fmt.Errorf("inserting device type attribute: %w", err)
	}
	return nil
}

// ListTypeAttributes returns the attributes declared for a device type,
// ordered by name.
func (s *Store) ListTypeAttributes(ctx context.Context, deviceTypeULID string) ([]TypeAttribute, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ulid, device_type, attribute_name, multiplicity
		 FROM device_type_attribute WHERE device_type = ? ORDER BY attribute_name`,
		deviceTypeULID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying device type attributes: %w", err)
	}
	defer rows.Close()

	var attrs []TypeAttribute
	for rows.Next() {
		var a TypeAttribute
		if err := rows.Scan(&a.ULID, &a.DeviceType, &a.AttributeName, &a.Multiplicity); err != nil {
			return nil, fmt.Errorf("scanning device type attribute: %w", err)
		}
		attrs = append(attrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device type attributes: %w", err)
	}
	return attrs, nil
}

// GetDeviceTypeByPartNumber resolves a part number to its device type, or
// ErrUnknownDeviceType if none is registered.
func (s *Store) GetDeviceTypeByPartNumber(ctx context.Context, partNumber string) (*DeviceType, error) {
	var dt DeviceType
	var model, descriptor, spec sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT ulid, part_number, manufacturer_name, model, descriptor, serial_number_spec
		 FROM device_type WHERE part_number = ?`,
		partNumber,
	).Scan(&dt.ULID, &dt.PartNumber, &dt.ManufacturerName, &model, &descriptor, &spec)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDeviceType, partNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("querying device type: %w", err)
	}
	dt.Model = model.String
	dt.Descriptor = descriptor.String
	dt.SerialNumberSpec = spec.String
	return &dt, nil
}

// SerialNumbersByType returns every serial number currently assigned to
// devices of the given type. The allocator scans this set inside the same
// transaction that inserts the next device.
func (s *Store) SerialNumbersByType(ctx context.Context, deviceTypeULID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT serial_number FROM device WHERE device_type = ?`,
		deviceTypeULID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying serial numbers: %w", err)
	}
	defer rows.Close()

	var serials []string
	for rows.Next() {
		var serial string
		if err := rows.Scan(&serial); err != nil {
			return nil, fmt.Errorf("scanning serial number: %w", err)
		}
		serials = append(serials, serial)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating serial numbers: %w", err)
	}
	return serials, nil
}

// SerialNumberExists reports whether any device, of any type, already holds
// the given serial number.
func (s *Store) SerialNumberExists(ctx context.Context, serial string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM device WHERE serial_number = ?`, serial,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking serial number: %w", err)
	}
	return n > 0, nil
}

// InsertDevice inserts a device row. A serial number collision maps to
// ErrDuplicateSerial.
func (s *Store) InsertDevice(ctx context.Context, d *Device) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device (ulid, device_type, part_number, serial_number)
		 VALUES (?, ?, ?, ?)`,
		d.ULID, d.DeviceType, d.PartNumber, d.SerialNumber,
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: %q", ErrDuplicateSerial, d.SerialNumber)
	}
	if err != nil {
		return fmt.Errorf("inserting device: %w", err)
	}
	return nil
}

// InsertDeviceAttribute attaches a typed key/value to a device.
func (s *Store) InsertDeviceAttribute(ctx context.Context, attr *DeviceAttribute) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO device_attribute (ulid, device, attribute_type, attribute_name, value)
		 VALUES (?, ?, ?, ?, ?)`,
		attr.ULID, attr.Device, attr.AttributeType, attr.AttributeName, attr.Value,
	)
	if err != nil {
		return fmt.Errorf("inserting device attribute: %w", err)
	}
	return nil
}

// ListDeviceAttributes returns the attributes of a device, ordered by name.
func (s *Store) ListDeviceAttributes(ctx context.Context, deviceULID string) ([]DeviceAttribute, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ulid, device, attribute_type, attribute_name, value
		 FROM device_attribute WHERE device = ? ORDER BY attribute_name`,
		deviceULID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying device attributes: %w", err)
	}
	defer rows.Close()

	var attrs []DeviceAttribute
	for rows.Next() {
		var a DeviceAttribute
		if err := rows.Scan(&a.ULID, &a.Device, &a.AttributeType, &a.AttributeName, &a.Value); err != nil {
			return nil, fmt.Errorf("scanning device attribute: %w", err)
		}
		attrs = append(attrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device attributes: %w", err)
	}
	return attrs, nil
}

// DeviceFilter controls which devices FindDevices returns. All fields are
// optional; set fields are combined with AND. Matching is case-sensitive
// substring containment, which is why the queries use instr() rather than
// LIKE (SQLite LIKE folds ASCII case).
type DeviceFilter struct {
	SerialNumber     string
	PartNumber       string
	Model            string
	ManufacturerName string
}

// FindDevices returns devices joined with their type, filtered by
// case-sensitive substring match and ordered by device ULID (creation
// order).
func (s *Store) FindDevices(ctx context.Context, filter DeviceFilter) ([]DeviceView, error) {
	var conditions []string
	var args []any

	if filter.SerialNumber != "" {
		conditions = append(conditions, "instr(d.serial_number, ?) > 0")
		args = append(args, filter.SerialNumber)
	}
	if filter.PartNumber != "" {
		conditions = append(conditions, "instr(d.part_number, ?) > 0")
		args = append(args, filter.PartNumber)
	}
	if filter.Model != "" {
		conditions = append(conditions, "instr(COALESCE(t.model, ''), ?) > 0")
		args = append(args, filter.Model)
	}
	if filter.ManufacturerName != "" {
		conditions = append(conditions, "instr(t.manufacturer_name, ?) > 0")
		args = append(args, filter.ManufacturerName)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		`SELECT d.ulid, d.device_type, d.part_number, d.serial_number, COALESCE(t.model, ''), t.manufacturer_name
		 FROM device d JOIN device_type t ON t.ulid = d.device_type
		 %s ORDER BY d.ulid`,
		where,
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	var devices []DeviceView
	for rows.Next() {
		var d DeviceView
		if err := rows.Scan(&d.ULID, &d.DeviceType, &d.PartNumber, &d.SerialNumber, &d.Model, &d.ManufacturerName); err != nil {
			return nil, fmt.Errorf("scanning device: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}

	if devices == nil {
		devices = []DeviceView{}
	}
	return devices, nil
}

// InsertHistoryEntry appends an immutable audit record.
func (s *Store) InsertHistoryEntry(ctx context.Context, e *HistoryEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history_entry (ulid, entity_ulid, timestamp, operation, comment)
		 VALUES (?, ?, ?, ?, ?)`,
		e.ULID, e.EntityULID, e.Timestamp.UTC().Format(time.RFC3339Nano), e.Operation, e.Comment,
	)
	if err != nil {
		return fmt.Errorf("inserting history entry: %w", err)
	}
	return nil
}

// HistoryFilter controls which history entries ListHistory returns.
type HistoryFilter struct {
	EntityULID string // optional: entries for one entity
	Operation  string // optional: entries with one operation tag
	Limit      int    // default 50, max 200
	Offset     int    // pagination offset
}

// ListHistory returns history entries matching the filter, most recent
// first. History ULIDs are lexically ordered by creation time, so the sort
// key is the primary key itself.
func (s *Store) ListHistory(ctx context.Context, filter HistoryFilter) ([]HistoryEntry, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 { //nolint:mnd // max page size for history queries
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.EntityULID != "" {
		conditions = append(conditions, "entity_ulid = ?")
		args = append(args, filter.EntityULID)
	}
	if filter.Operation != "" {
		conditions = append(conditions, "operation = ?")
		args = append(args, filter.Operation)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		`SELECT ulid, entity_ulid, timestamp, operation, comment
		 FROM history_entry %s ORDER BY ulid DESC LIMIT ? OFFSET ?`,
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var ts string
		if err := rows.Scan(&e.ULID, &e.EntityULID, &ts, &e.Operation, &e.Comment); err != nil {
			return nil, fmt.Errorf("scanning history entry: %w", err)
		}
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing history timestamp %q: %w", ts, err)
		}
		e.Timestamp = t
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}

	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries, nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
