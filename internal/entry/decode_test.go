package entry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	appA := PackageEntry{ID: "org.app.A", Remote: "flathub", Branch: "stable"}
	appB := PackageEntry{ID: "org.app.B", Remote: "fedora", Branch: "beta"}

	tests := []struct {
		name   string
		format Format
		data   string
		want   []PackageEntry
	}{
		{
			name:   "json list",
			format: FormatJSON,
			data:   `[{"id":"org.app.A","remote":"flathub","branch":"stable"},{"remote":"fedora","id":"org.app.B","branch":"beta"}]`,
			want:   []PackageEntry{appA, appB},
		},
		{
			name:   "json single record",
			format: FormatJSON,
			data:   `{"remote":"flathub","id":"org.app.A","branch":"stable"}`,
			want:   []PackageEntry{appA},
		},
		{
			name:   "json name alias",
			format: FormatJSON,
			data:   `{"name":"org.app.A","remote":"flathub","branch":"stable"}`,
			want:   []PackageEntry{appA},
		},
		{
			name:   "json empty list",
			format: FormatJSON,
			data:   `[]`,
			want:   []PackageEntry{},
		},
		{
			name:   "yaml list",
			format: FormatYAML,
			data:   "- id: org.app.A\n  remote: flathub\n  branch: stable\n- name: org.app.B\n  remote: fedora\n  branch: beta\n",
			want:   []PackageEntry{appA, appB},
		},
		{
			name:   "yaml single record",
			format: FormatYAML,
			data:   "id: org.app.A\nremote: flathub\nbranch: stable\n",
			want:   []PackageEntry{appA},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.data), tt.format)
			require.NoError(t, err)
			assert.ElementsMatch(t, tt.want, got)
		})
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", "   \n"},
		{"not json", "{not json"},
		{"wrong type", `"org.app.A"`},
		{"missing branch", `{"id":"org.app.A","remote":"flathub"}`},
		{"missing remote in list", `[{"id":"org.app.A","branch":"stable"}]`},
		{"missing id", `{"remote":"flathub","branch":"stable"}`},
		{"conflicting id and name", `{"id":"org.app.A","name":"org.app.B","remote":"flathub","branch":"stable"}`},
		{"numeric field", `[{"id":1,"remote":"flathub","branch":"stable"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.data), FormatJSON)
			assert.Error(t, err)
		})
	}
}

func TestFormatFor(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFor("apps.yaml"))
	assert.Equal(t, FormatYAML, FormatFor("apps.YML"))
	assert.Equal(t, FormatJSON, FormatFor("apps.json"))
	assert.Equal(t, FormatJSON, FormatFor("apps"))
}
