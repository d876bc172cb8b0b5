package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRunID      = "run_id"
	KeyRemote     = "remote"
	KeyPackageID  = "package_id"
	KeyBranch     = "branch"
	KeyRef        = "ref"
	KeyPath       = "path"
	KeyToInstall  = "to_install"
	KeyToRemove   = "to_remove"
	KeyOutcome    = "outcome"
	KeyTrigger    = "trigger"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

func RunID(id string) slog.Attr       { return slog.String(KeyRunID, id) }
func Remote(r string) slog.Attr       { return slog.String(KeyRemote, r) }
func PackageID(id string) slog.Attr   { return slog.String(KeyPackageID, id) }
func Branch(b string) slog.Attr       { return slog.String(KeyBranch, b) }
func Ref(r string) slog.Attr          { return slog.String(KeyRef, r) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func ToInstall(n int) slog.Attr       { return slog.Int(KeyToInstall, n) }
func ToRemove(n int) slog.Attr        { return slog.Int(KeyToRemove, n) }
func Outcome(o string) slog.Attr      { return slog.String(KeyOutcome, o) }
func Trigger(t string) slog.Attr      { return slog.String(KeyTrigger, t) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
