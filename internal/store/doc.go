// Package store keeps a local history of document analyses in SQLite.
//
// Each row holds the source name, the global score (NULL when fusion never
// completed), anomaly and pipeline error counts and the full analysis as
// JSON. The store is optional; nothing in the analysis path depends on it.
package store
