// Package domain defines the core types of the send-time scheduler.
//
// Types in this package are pure value objects with no behavior beyond small
// helpers, no database dependencies, and no HTTP concerns. They are the shared
// language between the scheduling engine, the API handlers, the reschedule
// service, and the repositories.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No *sql.DB, no http.Request, no context.Context in struct fields
//   - JSON/YAML tags are allowed (they're metadata, not behavior)
//   - Defaulting and enum checks are allowed (they're pure functions on the type)
package domain
