package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"editionlinks/internal/domain"
	"editionlinks/internal/metadata"
)

// JSONCodec exports datasets as JSON
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

type jsonEdition struct {
	domain.Edition
	AvisID     string `json:"avis_id,omitempty"`
	DateIssued string `json:"date_issued,omitempty"`
	MODS       string `json:"mods"`
}

type jsonDataset struct {
	Titles   []domain.Title `json:"titles"`
	Editions []jsonEdition  `json:"editions"`
}

// Export writes the dataset as indented JSON. Editions carry their MODS
// document and, when it can be read, the extracted avis id and date.
func (c *JSONCodec) Export(ds *domain.Dataset, w io.Writer) error {
	out := jsonDataset{
		Titles:   ds.Titles,
		Editions: make([]jsonEdition, 0, len(ds.Editions)),
	}
	if out.Titles == nil {
		out.Titles = []domain.Title{}
	}
	for _, e := range ds.Editions {
		je := jsonEdition{Edition: e, MODS: string(e.Metadata)}
		if meta, err := metadata.Extract(e.Metadata); err == nil {
			je.AvisID = meta.AvisID
			je.DateIssued = meta.IssueDate
		}
		out.Editions = append(out.Editions, je)
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}
