// Package metadata reads the identifying fields of an edition from its MODS
// metadata document.
package metadata

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"editionlinks/internal/domain"
)

// ModsNamespace is the MODS v3 XML namespace
const ModsNamespace = "http://www.loc.gov/mods/v3"

const (
	FieldTitle      = "titleInfo[@type='uniform']/title"
	FieldDateIssued = "originInfo/dateIssued"
	fieldDocument   = "mods"
)

type modsDocument struct {
	XMLName    xml.Name        `xml:"http://www.loc.gov/mods/v3 mods"`
	TitleInfo  []modsTitleInfo `xml:"http://www.loc.gov/mods/v3 titleInfo"`
	OriginInfo []modsOrigin    `xml:"http://www.loc.gov/mods/v3 originInfo"`
}

type modsTitleInfo struct {
	Type  string   `xml:"type,attr"`
	Title []string `xml:"http://www.loc.gov/mods/v3 title"`
}

type modsOrigin struct {
	DateIssued []string `xml:"http://www.loc.gov/mods/v3 dateIssued"`
}

// Extract parses an edition MODS document. The avis id comes from the uniform
// title and the date from originInfo/dateIssued; the first non-empty value of
// each wins.
func Extract(doc []byte) (domain.EditionMetadata, error) {
	var mods modsDocument
	dec := xml.NewDecoder(bytes.NewReader(doc))
	if err := dec.Decode(&mods); err != nil {
		return domain.EditionMetadata{}, &domain.MetadataMissingError{Field: fieldDocument, Err: err}
	}
	if err := expectEOF(dec); err != nil {
		return domain.EditionMetadata{}, &domain.MetadataMissingError{Field: fieldDocument, Err: err}
	}

	avisID := uniformTitle(mods.TitleInfo)
	if avisID == "" {
		return domain.EditionMetadata{}, &domain.MetadataMissingError{Field: FieldTitle}
	}

	date := dateIssued(mods.OriginInfo)
	if date == "" {
		return domain.EditionMetadata{}, &domain.MetadataMissingError{Field: FieldDateIssued}
	}

	return domain.EditionMetadata{AvisID: avisID, IssueDate: date}, nil
}

// expectEOF checks that only whitespace, comments and processing
// instructions follow the root element
func expectEOF(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) > 0 {
				return fmt.Errorf("text after root element at offset %d", dec.InputOffset())
			}
		default:
			return fmt.Errorf("content after root element at offset %d", dec.InputOffset())
		}
	}
}

func uniformTitle(infos []modsTitleInfo) string {
	for _, info := range infos {
		if info.Type != "uniform" {
			continue
		}
		if title := firstNonEmpty(info.Title); title != "" {
			return title
		}
	}
	return ""
}

func dateIssued(origins []modsOrigin) string {
	for _, origin := range origins {
		if date := firstNonEmpty(origin.DateIssued); date != "" {
			return date
		}
	}
	return ""
}

func firstNonEmpty(values []string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// Render builds a minimal MODS document carrying meta. Extract(Render(m))
// returns m for any m with non-empty fields.
func Render(meta domain.EditionMetadata) ([]byte, error) {
	doc := modsDocument{
		TitleInfo:  []modsTitleInfo{{Type: "uniform", Title: []string{meta.AvisID}}},
		OriginInfo: []modsOrigin{{DateIssued: []string{meta.IssueDate}}},
	}
	out, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render mods: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// IsMissing reports whether err was caused by an incomplete metadata document
func IsMissing(err error) bool {
	var missing *domain.MetadataMissingError
	return errors.As(err, &missing)
}
