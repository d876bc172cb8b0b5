// Package transactiontest provides an in-memory package mechanism for tests.
package transactiontest

import (
	"context"
	"fmt"
	"sync"

	"git.home.luguber.info/inful/polycrystal/internal/transaction"
)

// Call records one operation submitted to a fake transaction.
type Call struct {
	Op     string
	Remote string
	Ref    string
}

// Installation is a fake installation tracking installed refs in memory.
// The zero value is not usable; call New.
type Installation struct {
	mu sync.Mutex

	ArchName  string
	Installed map[string]bool

	// Errors injected per ref for AddInstall/AddUninstall, and for Run.
	AddErr map[string]error
	RunErr error
	NewErr error

	// BeforeRun, when set, is called at the start of every transaction Run.
	BeforeRun func()

	Transactions int
	Runs         int
	Calls        []Call
}

// New creates a fake installation for x86_64 with the given refs installed.
func New(installed ...string) *Installation {
	f := &Installation{
		ArchName:  "x86_64",
		Installed: make(map[string]bool),
		AddErr:    make(map[string]error),
	}
	for _, ref := range installed {
		f.Installed[ref] = true
	}
	return f
}

// Arch implements transaction.Installation.
func (f *Installation) Arch(context.Context) (string, error) {
	return f.ArchName, nil
}

// NewTransaction implements transaction.Installation.
func (f *Installation) NewTransaction(context.Context) (transaction.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.NewErr != nil {
		return nil, f.NewErr
	}
	f.Transactions++
	return &tx{owner: f}, nil
}

// IsInstalled reports whether ref is installed.
func (f *Installation) IsInstalled(ref string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Installed[ref]
}

type tx struct {
	owner   *Installation
	install []Call
	remove  []Call
}

func (t *tx) AddInstall(remote, ref string) error {
	f := t.owner
	f.mu.Lock()
	defer f.mu.Unlock()
	call := Call{Op: "install", Remote: remote, Ref: ref}
	f.Calls = append(f.Calls, call)
	if err := f.AddErr[ref]; err != nil {
		return err
	}
	if f.Installed[ref] {
		return fmt.Errorf("%s: %w", ref, transaction.ErrAlreadyInstalled)
	}
	t.install = append(t.install, call)
	return nil
}

func (t *tx) AddUninstall(ref string) error {
	f := t.owner
	f.mu.Lock()
	defer f.mu.Unlock()
	call := Call{Op: "uninstall", Ref: ref}
	f.Calls = append(f.Calls, call)
	if err := f.AddErr[ref]; err != nil {
		return err
	}
	if !f.Installed[ref] {
		return fmt.Errorf("%s: %w", ref, transaction.ErrNotInstalled)
	}
	t.remove = append(t.remove, call)
	return nil
}

func (t *tx) IsEmpty() bool {
	return len(t.install) == 0 && len(t.remove) == 0
}

func (t *tx) Run(context.Context) error {
	f := t.owner
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Runs++
	if f.BeforeRun != nil {
		f.BeforeRun()
	}
	if f.RunErr != nil {
		return f.RunErr
	}
	for _, c := range t.install {
		f.Installed[c.Ref] = true
	}
	for _, c := range t.remove {
		delete(f.Installed, c.Ref)
	}
	return nil
}
