// Package schema declares the field sets of a record type: which fields are
// allowed at all, which are required on write, and which are visible in each
// direction of data flow (read mask and write mask).
//
// A Schema is built once when a record type is registered. The Extend*
// methods exist for that declaration phase; once records are being created
// the schema should be treated as immutable.
package schema
