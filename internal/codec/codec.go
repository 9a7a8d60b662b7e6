// Package codec writes datasets of titles and editions in exchange formats.
package codec

import (
	"fmt"
	"io"

	"editionlinks/internal/domain"
)

// Exporter writes a dataset in one format
type Exporter interface {
	Export(ds *domain.Dataset, w io.Writer) error
	Format() string
}

// ForFormat returns the exporter for a format name
func ForFormat(format string) (Exporter, error) {
	switch format {
	case "yaml", "yml", "":
		return NewYAMLCodec(), nil
	case "json":
		return NewJSONCodec(), nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}
