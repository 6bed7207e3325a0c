package structure

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// ErrInvalidDocument indicates a structure document that cannot be turned
// into a Structure.
var ErrInvalidDocument = errors.New("invalid structure document")

// Format selects the serialization of a structure document.
type Format string

const (
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// Document is the serialized form of a Structure.
type Document struct {
	Lattice [3][3]float64  `toml:"lattice" json:"lattice"`
	Sites   []SiteDocument `toml:"sites" json:"sites"`
}

// SiteDocument is the serialized form of a Site. Magmom is either a number
// or a three-element array.
type SiteDocument struct {
	Species    string         `toml:"species" json:"species"`
	Coords     [3]float64     `toml:"coords" json:"coords"`
	Occupancy  float64        `toml:"occupancy,omitempty" json:"occupancy,omitempty"`
	Spin       float64        `toml:"spin,omitempty" json:"spin,omitempty"`
	Magmom     any            `toml:"magmom,omitempty" json:"magmom,omitempty"`
	Properties map[string]any `toml:"properties,omitempty" json:"properties,omitempty"`
}

// Document converts the structure to its serialized form.
func (s Structure) Document() Document {
	var doc Document
	for i, row := range s.lattice.Matrix {
		doc.Lattice[i] = [3]float64(row)
	}
	doc.Sites = make([]SiteDocument, len(s.sites))
	for i, site := range s.sites {
		sd := SiteDocument{
			Species:   site.Species,
			Coords:    [3]float64(site.Frac),
			Occupancy: site.Occupancy,
			Spin:      site.Spin,
		}
		for k, v := range site.Properties {
			if k == PropMagmom {
				sd.Magmom = encodeMoment(v)
				continue
			}
			if sd.Properties == nil {
				sd.Properties = make(map[string]any)
			}
			if vec, ok := v.(Vec3); ok {
				v = []float64{vec[0], vec[1], vec[2]}
			}
			sd.Properties[k] = v
		}
		doc.Sites[i] = sd
	}
	return doc
}

// FromDocument builds a Structure from its serialized form.
func FromDocument(doc Document) (Structure, error) {
	if len(doc.Sites) == 0 {
		return Structure{}, fmt.Errorf("%w: no sites", ErrInvalidDocument)
	}
	var lattice Lattice
	for i, row := range doc.Lattice {
		lattice.Matrix[i] = Vec3(row)
	}
	if lattice.Volume() == 0 {
		return Structure{}, fmt.Errorf("%w: degenerate lattice", ErrInvalidDocument)
	}

	sites := make([]Site, len(doc.Sites))
	for i, sd := range doc.Sites {
		if sd.Species == "" {
			return Structure{}, fmt.Errorf("%w: site %d has no species", ErrInvalidDocument, i)
		}
		site := Site{
			Species:   sd.Species,
			Frac:      Vec3(sd.Coords),
			Occupancy: sd.Occupancy,
			Spin:      sd.Spin,
		}
		if len(sd.Properties) > 0 {
			site.Properties = make(map[string]any, len(sd.Properties)+1)
			for k, v := range sd.Properties {
				site.Properties[k] = v
			}
		}
		if sd.Magmom != nil {
			m, err := decodeMoment(sd.Magmom)
			if err != nil {
				return Structure{}, fmt.Errorf("%w: site %d: %v", ErrInvalidDocument, i, err)
			}
			if site.Properties == nil {
				site.Properties = make(map[string]any, 1)
			}
			site.Properties[PropMagmom] = m
		}
		sites[i] = site
	}
	return Structure{lattice: lattice, sites: sites}, nil
}

// Decode parses a structure document in the given format.
func Decode(data []byte, format Format) (Structure, error) {
	var doc Document
	switch format {
	case FormatTOML:
		if err := toml.Unmarshal(data, &doc); err != nil {
			return Structure{}, fmt.Errorf("%w: parsing TOML: %v", ErrInvalidDocument, err)
		}
	case FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return Structure{}, fmt.Errorf("%w: parsing JSON: %v", ErrInvalidDocument, err)
		}
	default:
		return Structure{}, fmt.Errorf("%w: unknown format %q", ErrInvalidDocument, format)
	}
	return FromDocument(doc)
}

// Encode serializes the structure in the given format.
func Encode(s Structure, format Format) ([]byte, error) {
	switch format {
	case FormatTOML:
		return toml.Marshal(s.Document())
	case FormatJSON:
		return json.MarshalIndent(s.Document(), "", "  ")
	default:
		return nil, fmt.Errorf("unknown structure format %q", format)
	}
}

// FormatFor picks a format from a file extension. Anything that is not
// .json is read as TOML.
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatTOML
}

// Load reads a structure document from disk.
func Load(path string) (Structure, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Structure{}, fmt.Errorf("reading structure %s: %w", path, err)
	}
	s, err := Decode(data, FormatFor(path))
	if err != nil {
		return Structure{}, fmt.Errorf("loading %s: %w", path, err)
	}
	return s, nil
}

// MarshalJSON encodes the structure as its Document.
func (s Structure) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Document())
}

// UnmarshalJSON decodes a Document into the structure.
func (s *Structure) UnmarshalJSON(data []byte) error {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	out, err := FromDocument(doc)
	if err != nil {
		return err
	}
	*s = out
	return nil
}

func encodeMoment(v any) any {
	if vec, ok := v.(Vec3); ok {
		return []float64{vec[0], vec[1], vec[2]}
	}
	return v
}

// decodeMoment normalizes a decoded moment to float64 or Vec3.
func decodeMoment(v any) (any, error) {
	if f, ok := toFloat(v); ok {
		return f, nil
	}
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case []float64:
		for _, f := range t {
			items = append(items, f)
		}
	default:
		return nil, fmt.Errorf("magmom of type %T", v)
	}
	switch len(items) {
	case 1:
		if f, ok := toFloat(items[0]); ok {
			return f, nil
		}
	case 3:
		var vec Vec3
		for i, item := range items {
			f, ok := toFloat(item)
			if !ok {
				return nil, fmt.Errorf("magmom component %d of type %T", i, item)
			}
			vec[i] = f
		}
		return vec, nil
	}
	return nil, fmt.Errorf("magmom must be a number or a 3-vector, got %d components", len(items))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
