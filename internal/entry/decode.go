package entry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the decoder used for an entry document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFor picks the format from a file name. Anything that is not .yaml or .yml is JSON.
func FormatFor(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// record is the wire shape of one declaration; "name" is accepted as an alias of "id".
type record struct {
	ID     string `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Remote string `json:"remote" yaml:"remote"`
	Branch string `json:"branch" yaml:"branch"`
}

func (r record) entry() (PackageEntry, error) {
	id := r.ID
	if id == "" {
		id = r.Name
	} else if r.Name != "" && r.Name != r.ID {
		return PackageEntry{}, fmt.Errorf("conflicting %q and %q: %q != %q", "id", "name", r.ID, r.Name)
	}
	e := PackageEntry{ID: id, Remote: r.Remote, Branch: r.Branch}
	if err := e.Validate(); err != nil {
		return PackageEntry{}, err
	}
	return e, nil
}

// Decode parses a document holding either a list of records or a single record.
func Decode(data []byte, format Format) ([]PackageEntry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("empty document")
	}

	unmarshal := json.Unmarshal
	if format == FormatYAML {
		unmarshal = yaml.Unmarshal
	}

	var records []record
	if listErr := unmarshal(data, &records); listErr != nil {
		var single record
		if err := unmarshal(data, &single); err != nil {
			return nil, fmt.Errorf("neither a list nor a single entry: %w", listErr)
		}
		records = []record{single}
	}

	entries := make([]PackageEntry, 0, len(records))
	for i, r := range records {
		e, err := r.entry()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
