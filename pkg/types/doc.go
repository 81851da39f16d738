// Package types defines the Store, Tx and Table interfaces, the CRM entity
// types (leads, tasks, activity events, daily metrics) and the sentinel
// errors shared by the store, the repositories and the backup engine.
package types
