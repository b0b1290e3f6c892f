// Package inventory implements the transactional allocation engine of the
// hardware inventory database.
//
// It owns the domain model (device types, devices, attribute bags, history
// entries), the serial-number allocator, the history recorder, and the
// Service that wraps them in transactions. Every mutating operation is one
// atomic unit of work: begin, act, record history, commit. Rollback
// releases all effects on any failure, so the store is never left with a
// partial batch or a mutation that has no audit row.
//
// Serial allocation is scan-then-insert: the allocator computes the next
// free number by scanning existing devices of the type inside the same
// transaction that inserts the new device. A service-level write mutex plus
// the single-connection SQLite pool enforce the single-writer discipline
// this depends on.
package inventory
