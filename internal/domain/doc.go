// Package domain contains the core domain entities and value objects for ipcheck.
//
// This package represents the innermost layer of the Clean Architecture. It has
// no dependencies on infrastructure concerns (HTTP, file system, logging) and
// contains only pure business logic.
//
// # Entities
//
//   - [SelectedFile]: The information package chosen by the user (name + byte source)
//   - [Digest]: Deterministic checksum of a package's bytes
//   - [ValidationReport]: The service's verdict, an overall status plus ordered entries
//   - [Entry]: One severity-tagged finding inside a report
//
// # Design Principles
//
// Domain entities are:
//   - Immutable after construction (where practical)
//   - Free of infrastructure dependencies
//   - Focused on business rules and invariants
//   - Testable without mocks or external systems
package domain
