package codec

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"editionlinks/internal/domain"
	"editionlinks/internal/loader"
)

// YAMLCodec exports datasets in the fixture format read by the loader
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// Export writes the dataset as a fixture file. Edition metadata is written
// verbatim so the export can be imported again unchanged.
func (c *YAMLCodec) Export(ds *domain.Dataset, w io.Writer) error {
	out := loader.FixturesYAML{Version: "1"}

	for _, t := range ds.Titles {
		out.Titles = append(out.Titles, loader.TitleYAML{
			PID:       t.PID,
			AvisID:    t.AvisID,
			StartDate: t.StartDate,
			EndDate:   t.EndDate,
			State:     string(t.State),
		})
	}

	for _, e := range ds.Editions {
		ye := loader.EditionYAML{
			PID:   e.PID,
			State: string(e.State),
			MODS:  string(e.Metadata),
		}
		for _, title := range e.Titles {
			ye.Titles = append(ye.Titles, title.PID)
		}
		out.Editions = append(out.Editions, ye)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}
