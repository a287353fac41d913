// Package queue persists retry entries in SQLite so failed or cancelled
// uploads survive process restarts and can be resubmitted later.
//
// The Store manages the database connection, schema initialization, and the
// entry lifecycle: settled batches save their failures, the retry command
// lists and resubmits them, and completed resubmissions are removed.
//
// The database is transient storage for pending retries rather than a
// long-term archive. Schema changes bump the version in schema.go; users
// clear the database to adopt the new schema.
package queue
