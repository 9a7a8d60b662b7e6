package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"editionlinks/internal/domain"
	"editionlinks/internal/metadata"
)

const fixtures = `
version: "1"
titles:
  - pid: uuid:38deefa7-381f-4abf-a6c1-a3531b54f997
    avis_id: avis
    start_date: "1900-01-01"
    end_date: "1949-12-31"
  - avis_id: avis
    start_date: "1950-01-01"
editions:
  - pid: uuid:0c1969ca-94be-4ebb-abab-0bd8130e59d7
    avis_id: avis
    date_issued: "1955-03-01"
    titles:
      - info:fedora/uuid:38deefa7-381f-4abf-a6c1-a3531b54f997
  - pid: uuid:edition-2
    state: i
    mods: |
      <mods xmlns="http://www.loc.gov/mods/v3">
        <titleInfo type="uniform"><title>avis</title></titleInfo>
        <originInfo><dateIssued>1901-01-01</dateIssued></originInfo>
      </mods>
`

func TestParseYAML(t *testing.T) {
	ds, err := ParseYAML([]byte(fixtures))
	require.NoError(t, err)

	require.Len(t, ds.Titles, 2)
	assert.Equal(t, "uuid:38deefa7-381f-4abf-a6c1-a3531b54f997", ds.Titles[0].PID)
	assert.Equal(t, "1949-12-31", ds.Titles[0].EndDate)
	assert.True(t, strings.HasPrefix(ds.Titles[1].PID, "uuid:"), "missing pid is generated")
	assert.Empty(t, ds.Titles[1].EndDate)

	require.Len(t, ds.Editions, 2)
	first := ds.Editions[0]
	assert.Equal(t, []domain.Item{domain.NewItem("uuid:38deefa7-381f-4abf-a6c1-a3531b54f997")}, first.Titles)
	meta, err := metadata.Extract(first.Metadata)
	require.NoError(t, err)
	assert.Equal(t, domain.EditionMetadata{AvisID: "avis", IssueDate: "1955-03-01"}, meta)

	second := ds.Editions[1]
	assert.Equal(t, domain.StateInactive, second.State)
	meta, err = metadata.Extract(second.Metadata)
	require.NoError(t, err)
	assert.Equal(t, "1901-01-01", meta.IssueDate)
}

func TestParseYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"invalid yaml", "titles: [", "failed to parse YAML"},
		{"title without avis", "titles:\n  - pid: uuid:t\n", "avis_id is required"},
		{"bad state", "titles:\n  - avis_id: a\n    state: X\n", "invalid state"},
		{"duplicate pid", "titles:\n  - pid: uuid:x\n    avis_id: a\neditions:\n  - pid: uuid:x\n    avis_id: a\n    date_issued: d\n", "duplicate pid"},
		{"edition without metadata", "editions:\n  - pid: uuid:e\n", "either mods"},
		{"edition with both", "editions:\n  - pid: uuid:e\n    mods: <mods/>\n    avis_id: a\n", "mutually exclusive"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixtures.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixtures), 0o644))

	ds, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Len(t, ds.Editions, 2)

	_, err = LoadYAML(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
