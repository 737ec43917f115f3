/*
Package store persists per-thread conversation state and run feedback.

ThreadStore is the checkpoint contract: load a thread's state, save it
back after a run, and hold a per-thread exclusive lease while a run is
mutating it. The lease is what guarantees at-most-one concurrent writer
per thread; the workflow engine itself is stateless between calls.

Backends: Memory (tests, single process), Gorm (SQLite/Postgres/MySQL
via dialector switch), Redis (lease is a SET NX key with TTL, so it
holds across processes) and Mongo. FeedbackStore records user feedback
correlated by run id.
*/
package store
