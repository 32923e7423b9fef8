// Package migrations holds the schema migrations compiled into aceman.
//
// Each migration is a pair of files named <version>_<name>.up.sql and
// <version>_<name>.down.sql. Versions are unix timestamps of the moment the
// migration was written and must all have the same number of digits; use
// `aceman db migrate create <name>` to scaffold a new pair. A version must
// never be reused or renumbered once released.
//
// The down file must undo exactly what the up file does. Nothing checks
// this, and `aceman db migrate down` trusts it.
//
// Each file runs in its own transaction together with its ledger write, so
// a file must not contain statements Postgres refuses inside a transaction,
// such as CREATE INDEX CONCURRENTLY.
package migrations
