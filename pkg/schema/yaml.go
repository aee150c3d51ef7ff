package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// A schema file lists entities with their fields:
//
//	entities:
//	  - name: user
//	    fields:
//	      - name: id
//	        type: INTEGER
//	      - name: name
//	        type: TEXT
//	  - name: active_user
//	    view: true
//	    fields:
//	      - {name: id, type: INTEGER}

// ParseError reports an invalid schema file.
type ParseError struct {
	File    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	case e.File != "":
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// fileYAML is the on-disk layout.
type fileYAML struct {
	Entities []entityYAML `yaml:"entities"`
}

type entityYAML struct {
	Name   string      `yaml:"name"`
	View   bool        `yaml:"view"`
	Fields []fieldYAML `yaml:"fields"`
	line   int
	column int
}

type fieldYAML struct {
	Name   string `yaml:"name"`
	Type   string `yaml:"type"`
	line   int
	column int
}

// UnmarshalYAML records where the entity was declared.
func (e *entityYAML) UnmarshalYAML(value *yaml.Node) error {
	type plain entityYAML
	var p plain
	if err := decodeStrict(value, &p, "name", "view", "fields"); err != nil {
		return err
	}
	*e = entityYAML(p)
	e.line, e.column = value.Line, value.Column
	return nil
}

// UnmarshalYAML records where the field was declared.
func (f *fieldYAML) UnmarshalYAML(value *yaml.Node) error {
	type plain fieldYAML
	var p plain
	if err := decodeStrict(value, &p, "name", "type"); err != nil {
		return err
	}
	*f = fieldYAML(p)
	f.line, f.column = value.Line, value.Column
	return nil
}

// decodeStrict decodes a mapping node rejecting keys not in known.
func decodeStrict(value *yaml.Node, out any, known ...string) error {
	if value.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(value.Content); i += 2 {
			key := value.Content[i]
			if !slices.Contains(known, key.Value) {
				return &ParseError{Line: key.Line, Message: fmt.Sprintf("unknown field %q", key.Value)}
			}
		}
	}
	return value.Decode(out)
}

// Parse reads a schema document. uri becomes the location of every entity
// and field, with the line they are declared on.
func Parse(r io.Reader, uri string) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{File: uri, Message: fmt.Sprintf("invalid YAML: %v", err)}
	}
	if len(doc.Content) == 0 {
		return NewCatalog(), nil
	}

	var file fileYAML
	if err := decodeStrict(doc.Content[0], &file, "entities"); err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.File = uri
			return nil, pe
		}
		return nil, &ParseError{File: uri, Message: err.Error()}
	}

	catalog := NewCatalog()
	for _, ey := range file.Entities {
		if ey.Name == "" {
			return nil, &ParseError{File: uri, Line: ey.line, Message: "entity without a name"}
		}
		if _, dup := catalog.Entity(ey.Name); dup {
			return nil, &ParseError{File: uri, Line: ey.line, Message: fmt.Sprintf("duplicate entity %q", ey.Name)}
		}
		entity := &Entity{
			Name:     ey.Name,
			View:     ey.View,
			Location: Location{URI: uri, Line: ey.line, Column: ey.column},
		}
		for _, fy := range ey.Fields {
			if fy.Name == "" {
				return nil, &ParseError{File: uri, Line: fy.line, Message: fmt.Sprintf("field without a name in %q", ey.Name)}
			}
			entity.Fields = append(entity.Fields, &Field{
				Name:     fy.Name,
				Type:     fy.Type,
				Location: Location{URI: uri, Line: fy.line, Column: fy.column},
			})
		}
		catalog.Add(entity)
	}
	return catalog, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte, uri string) (*Catalog, error) {
	return Parse(bytes.NewReader(data), uri)
}

// LoadFile reads a schema file from disk.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	return Parse(f, path)
}

// Marshal renders a catalog in the schema file layout.
func Marshal(c *Catalog) ([]byte, error) {
	type field struct {
		Name string `yaml:"name"`
		Type string `yaml:"type,omitempty"`
	}
	type entity struct {
		Name   string  `yaml:"name"`
		View   bool    `yaml:"view,omitempty"`
		Fields []field `yaml:"fields"`
	}
	var out struct {
		Entities []entity `yaml:"entities"`
	}
	for _, e := range c.Entities() {
		ent := entity{Name: e.Name, View: e.View, Fields: []field{}}
		for _, f := range e.Fields {
			ent.Fields = append(ent.Fields, field{Name: f.Name, Type: f.Type})
		}
		out.Entities = append(out.Entities, ent)
	}
	return yaml.Marshal(&out)
}
