package swagger

// @Tag.name Meta
// @Tag.description Operational checks and metadata about the service.

// @Tag.name Auth
// @Tag.description Login and caller introspection.

// @Tag.name Definitions
// @Tag.description Compiled front schemas, derived layouts and enumeration tables.

// @Tag.name Entities
// @Tag.description Formatted reads and minimal mutations of schema-driven records.

// @Tag.name Edit Logs
// @Tag.description Audit trail of every create, update and delete.
