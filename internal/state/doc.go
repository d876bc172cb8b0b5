// Package state owns the persisted record of what polycrystal last reconciled to.
//
// The record is a JSON list of package entries at a single path. Access is
// serialised across processes by an advisory lock on a sibling "<path>.lock"
// file: Store.Open blocks until the lock is free and returns a Handle that
// keeps it until Close. Commits go through a temporary file that is synced and
// renamed over the record, so readers never observe a partial write. The lock
// lives on its own file so that the rename never leaves a waiting process
// holding a lock on a replaced inode.
//
// An absent or empty record is the valid initial state. Anything else that does
// not parse is a fatal ParseError: guessing would reinstall or remove packages.
package state
