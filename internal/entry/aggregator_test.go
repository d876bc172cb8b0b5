package entry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/polycrystal/internal/errors"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestAggregatorMergesFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "browser.json", `{"remote":"flathub","id":"org.mozilla.firefox","branch":"stable"}`)
	writeFile(t, dir, "office.json", `[
		{"remote":"flathub","id":"org.libreoffice.LibreOffice","branch":"stable"},
		{"remote":"flathub","id":"org.mozilla.firefox","branch":"stable"}
	]`)
	writeFile(t, dir, "media.yaml", "- id: org.videolan.VLC\n  remote: flathub\n  branch: stable\n")

	desired, err := NewAggregator(dir).Desired()
	require.NoError(t, err)

	want := NewSet(
		PackageEntry{ID: "org.mozilla.firefox", Remote: "flathub", Branch: "stable"},
		PackageEntry{ID: "org.libreoffice.LibreOffice", Remote: "flathub", Branch: "stable"},
		PackageEntry{ID: "org.videolan.VLC", Remote: "flathub", Branch: "stable"},
	)
	assert.True(t, want.Equal(desired), "got %v", Sorted(desired))
}

func TestAggregatorSkipsNonFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", `{"remote":"flathub","id":"org.app.A","branch":"stable"}`)
	writeFile(t, dir, ".hidden.json", `garbage`)
	writeFile(t, dir, "a.json~", `garbage`)

	sub := filepath.Join(dir, "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))
	writeFile(t, sub, "b.json", `{"remote":"flathub","id":"org.app.B","branch":"stable"}`)
	require.NoError(t, os.Symlink(filepath.Join(sub, "b.json"), filepath.Join(dir, "link.json")))

	desired, err := NewAggregator(dir).Desired()
	require.NoError(t, err)
	assert.Equal(t, []PackageEntry{{ID: "org.app.A", Remote: "flathub", Branch: "stable"}}, Sorted(desired))
}

func TestAggregatorEmptyDirectory(t *testing.T) {
	desired, err := NewAggregator(t.TempDir()).Desired()
	require.NoError(t, err)
	assert.Equal(t, 0, desired.Len())
}

func TestAggregatorMissingDirectoryIsConfigError(t *testing.T) {
	_, err := NewAggregator(filepath.Join(t.TempDir(), "absent")).Desired()
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

func TestAggregatorMalformedFileIsParseError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "good.json", `{"remote":"flathub","id":"org.app.A","branch":"stable"}`)
	writeFile(t, dir, "bad.json", `[{"remote":"flathub"`)

	_, err := NewAggregator(dir).Desired()
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryParse))

	classified, ok := errors.AsClassified(err)
	require.True(t, ok)
	file, _ := classified.Context().GetString("file")
	assert.Equal(t, filepath.Join(dir, "bad.json"), file)
}
