package transaction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRefFormat(t *testing.T) {
	assert.Equal(t, "app/org.app.A/x86_64/stable",
		Ref{Kind: KindApp, Name: "org.app.A", Arch: "x86_64", Branch: "stable"}.Format())
	assert.Equal(t, "app/org.app.A/aarch64/beta",
		Ref{Name: "org.app.A", Arch: "aarch64", Branch: "beta"}.Format(), "kind defaults to app")
	assert.Equal(t, "runtime/org.freedesktop.Platform/x86_64/24.08",
		Ref{Kind: "runtime", Name: "org.freedesktop.Platform", Arch: "x86_64", Branch: "24.08"}.Format())
}
