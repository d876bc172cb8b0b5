// Package transaction applies a diff plan through an external package-transaction
// mechanism. The mechanism is reached only through the Installation and
// Transaction interfaces so the reconciliation logic never depends on it directly.
package transaction

import (
	"context"
	"errors"
	"strings"
)

// Conditions a mechanism reports when an operation is already satisfied.
// Wrap them so errors.Is matches.
var (
	ErrAlreadyInstalled = errors.New("already installed")
	ErrNotInstalled     = errors.New("not installed")
)

// Transaction queues operations and runs them as one batch.
type Transaction interface {
	// AddInstall queues installation of ref from remote.
	AddInstall(remote, ref string) error
	// AddUninstall queues removal of ref.
	AddUninstall(ref string) error
	// IsEmpty reports whether no operation is queued.
	IsEmpty() bool
	// Run executes all queued operations without user interaction.
	Run(ctx context.Context) error
}

// Installation is the installation context transactions are bound to.
type Installation interface {
	// Arch returns the architecture refs are formatted for.
	Arch(ctx context.Context) (string, error)
	// NewTransaction creates an empty transaction.
	NewTransaction(ctx context.Context) (Transaction, error)
}

// KindApp is the only ref kind entries describe.
const KindApp = "app"

// Ref is the canonical address of a package within an installation.
type Ref struct {
	Kind   string
	Name   string
	Arch   string
	Branch string
}

// Format renders kind/name/arch/branch.
func (r Ref) Format() string {
	kind := r.Kind
	if kind == "" {
		kind = KindApp
	}
	return strings.Join([]string{kind, r.Name, r.Arch, r.Branch}, "/")
}
