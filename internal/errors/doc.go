// Package errors provides the classified error type used across polycrystal.
//
// Every fatal condition of a reconciliation run is reported as a ClassifiedError
// whose category tells the CLI how to present it and which exit code to use:
//   - CategoryConfig: the entries directory or configuration cannot be read
//   - CategoryParse: an entry file or the state file holds malformed data
//   - CategoryLock: the state lock cannot be acquired
//   - CategoryTransaction: the package transaction failed
//   - CategoryCommit: the state file could not be rewritten after a successful transaction
//
// Example usage:
//
//	err := errors.ParseError("malformed entry file").
//		WithCause(decodeErr).
//		WithContext("file", path).
//		Build()
package errors
