// Package flatpak implements the package-transaction mechanism on top of the flatpak CLI.
package flatpak

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"

	"git.home.luguber.info/inful/polycrystal/internal/logfields"
	"git.home.luguber.info/inful/polycrystal/internal/transaction"
)

// Kind selects the system-wide or the per-user installation.
type Kind string

const (
	KindSystem Kind = "system"
	KindUser   Kind = "user"
)

const defaultBinary = "flatpak"

// Installation is a flatpak installation driven through the CLI.
type Installation struct {
	kind   Kind
	binary string
	runner CommandRunner

	mu   sync.Mutex
	arch string
}

// Option configures an Installation.
type Option func(*Installation)

// WithRunner replaces the command runner.
func WithRunner(r CommandRunner) Option {
	return func(i *Installation) { i.runner = r }
}

// WithBinary replaces the flatpak executable path.
func WithBinary(path string) Option {
	return func(i *Installation) { i.binary = path }
}

// NewInstallation creates an installation of the given kind.
func NewInstallation(kind Kind, opts ...Option) *Installation {
	i := &Installation{kind: kind, binary: defaultBinary, runner: ExecRunner{}}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func (i *Installation) scopeFlag() string {
	if i.kind == KindUser {
		return "--user"
	}
	return "--system"
}

func (i *Installation) run(ctx context.Context, args ...string) ([]byte, error) {
	slog.Debug("Running flatpak", slog.String("args", strings.Join(args, " ")))
	stdout, stderr, err := i.runner.Run(ctx, i.binary, args...)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			return stdout, fmt.Errorf("%s %s: %w", i.binary, args[0], err)
		}
		return stdout, fmt.Errorf("%s %s: %w: %s", i.binary, args[0], err, msg)
	}
	return stdout, nil
}

// Arch returns the default architecture reported by flatpak. Successful lookups are cached.
func (i *Installation) Arch(ctx context.Context) (string, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.arch != "" {
		return i.arch, nil
	}
	out, err := i.run(ctx, "--default-arch")
	if err != nil {
		return "", err
	}
	arch := strings.TrimSpace(string(out))
	if arch == "" {
		return "", fmt.Errorf("flatpak reported an empty default architecture")
	}
	i.arch = arch
	return arch, nil
}

// NewTransaction snapshots the installed apps and returns an empty transaction.
func (i *Installation) NewTransaction(ctx context.Context) (transaction.Transaction, error) {
	installed, err := i.installedRefs(ctx)
	if err != nil {
		return nil, err
	}
	return &Transaction{
		installation: i,
		installed:    installed,
		installs:     make(map[string][]string),
		queued:       make(map[string]bool),
	}, nil
}

func (i *Installation) installedRefs(ctx context.Context) (map[string]bool, error) {
	out, err := i.run(ctx, "list", i.scopeFlag(), "--app", "--columns=ref")
	if err != nil {
		return nil, err
	}
	refs := make(map[string]bool)
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, transaction.KindApp+"/") && !strings.HasPrefix(line, "runtime/") {
			line = transaction.KindApp + "/" + line
		}
		refs[line] = true
	}
	return refs, sc.Err()
}

// Transaction queues installs per remote and uninstalls, and runs them non-interactively.
type Transaction struct {
	installation *Installation
	installed    map[string]bool
	installs     map[string][]string
	uninstalls   []string
	queued       map[string]bool
}

// AddInstall implements transaction.Transaction.
func (t *Transaction) AddInstall(remote, ref string) error {
	if t.installed[ref] {
		return fmt.Errorf("%s: %w", ref, transaction.ErrAlreadyInstalled)
	}
	if t.queued[ref] {
		return nil
	}
	t.queued[ref] = true
	t.installs[remote] = append(t.installs[remote], ref)
	return nil
}

// AddUninstall implements transaction.Transaction.
func (t *Transaction) AddUninstall(ref string) error {
	if !t.installed[ref] {
		return fmt.Errorf("%s: %w", ref, transaction.ErrNotInstalled)
	}
	if t.queued[ref] {
		return nil
	}
	t.queued[ref] = true
	t.uninstalls = append(t.uninstalls, ref)
	return nil
}

// IsEmpty implements transaction.Transaction.
func (t *Transaction) IsEmpty() bool {
	return len(t.installs) == 0 && len(t.uninstalls) == 0
}

// Run installs from each remote in name order, then uninstalls. The first failure stops the run.
//
// The flatpak CLI cannot batch both kinds into one call, so Run is not atomic: refs installed
// from an earlier remote stay installed when a later call fails. The recorded state is only
// rewritten after Run succeeds, so the next run plans those refs again and the mechanism
// reports them as already installed.
func (t *Transaction) Run(ctx context.Context) error {
	scope := t.installation.scopeFlag()
	for _, remote := range slices.Sorted(maps.Keys(t.installs)) {
		refs := t.installs[remote]
		slog.Info("Installing from remote", logfields.Remote(remote), slog.Int("refs", len(refs)))
		args := append([]string{"install", scope, "--noninteractive", "-y", remote}, refs...)
		if _, err := t.installation.run(ctx, args...); err != nil {
			return err
		}
	}
	if len(t.uninstalls) > 0 {
		slog.Info("Uninstalling", slog.Int("refs", len(t.uninstalls)))
		args := append([]string{"uninstall", scope, "--noninteractive", "-y"}, t.uninstalls...)
		if _, err := t.installation.run(ctx, args...); err != nil {
			return err
		}
	}
	return nil
}
