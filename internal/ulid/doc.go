// Package ulid generates ULIDs: 128-bit identifiers combining a 48-bit
// millisecond UTC timestamp with an 80-bit random tail, rendered as 26
// Crockford base32 characters.
//
// Identifiers are lexicographically sortable by generation time and unique
// for the lifetime of a Generator. Within a single millisecond the tail is
// incremented rather than redrawn, so back-to-back identifiers remain
// strictly ordered.
//
// The Generator is an explicitly owned instance, not package-level state.
// Construct one per process with New() and inject it into the components
// that mint identifiers:
//
//	gen := ulid.New()
//	id, err := gen.Next()
package ulid
