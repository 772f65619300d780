// Package permission resolves role and ownership decisions for an
// authenticated identity.
//
// Roles form a configured total order (for example admin > manager >
// shiftlead = mover > customer) held in an explicit [Table] — nothing is
// inferred from role names. An admin role holds every permission
// unconditionally and bypasses ownership checks; every other role needs both
// the named permission and ownership of the target resource.
//
// Listings are filtered server-side through [FilterByPermission] so a
// response never carries another owner's rows.
//
// # What this package must NOT do
//
//   - Perform I/O. The table is immutable after [NewTable].
//   - Inspect tokens — callers pass the already-resolved role and subject.
package permission
