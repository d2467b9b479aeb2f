// Package profile loads dataset profiles: declared fields plus the logical
// constraints rows must satisfy. Profiles are YAML; JSON documents parse too.
package profile

import (
	"os"
	"strings"

	"rowsynth/internal/constraint"
	"rowsynth/internal/schema"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Profile is a loaded dataset description.
type Profile struct {
	Description string
	Fields      schema.ProfileFields
	Constraints []constraint.Constraint
}

type document struct {
	Description string          `yaml:"description"`
	Fields      []fieldDoc      `yaml:"fields"`
	Constraints []constraintDoc `yaml:"constraints"`
	// Rules group constraints under a name for readability only.
	Rules []ruleDoc `yaml:"rules"`
}

type fieldDoc struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Nullable *bool  `yaml:"nullable"`
	Unique   *bool  `yaml:"unique"`
	Format   string `yaml:"formatting"`
}

type ruleDoc struct {
	Rule        string          `yaml:"rule"`
	Constraints []constraintDoc `yaml:"constraints"`
}

// Load reads a profile file. Fields of the imported table, when given, are
// declared first; profile fields with the same name override them.
func Load(path string, table *Table) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read profile %s", path)
	}
	p, err := Parse(data, table)
	if err != nil {
		return nil, errors.Wrapf(err, "profile %s", path)
	}
	return p, nil
}

// Parse decodes a profile document.
func Parse(data []byte, table *Table) (*Profile, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "decode profile")
	}
	var imported []schema.Field
	var docs []constraintDoc
	if table != nil {
		imported = table.Fields
		docs = table.impliedFor(doc.Fields)
	}
	fields, err := declareFields(doc.Fields, imported)
	if err != nil {
		return nil, err
	}
	if fields.Len() == 0 {
		return nil, errors.New("profile declares no fields")
	}
	c := compiler{fields: fields}
	docs = append(docs, doc.Constraints...)
	for _, r := range doc.Rules {
		docs = append(docs, r.Constraints...)
	}
	constraints, err := c.compileList(docs, "constraints")
	if err != nil {
		return nil, err
	}
	return &Profile{Description: doc.Description, Fields: fields, Constraints: constraints}, nil
}

func declareFields(docs []fieldDoc, imported []schema.Field) (schema.ProfileFields, error) {
	fields := append([]schema.Field(nil), imported...)
	index := make(map[string]int, len(fields))
	for i, f := range fields {
		index[f.Name] = i
	}
	declared := make(map[string]struct{}, len(docs))
	for i, d := range docs {
		name := strings.TrimSpace(d.Name)
		if name == "" {
			return schema.ProfileFields{}, errors.Errorf("fields[%d]: name is required", i)
		}
		if _, dup := declared[name]; dup {
			return schema.ProfileFields{}, errors.Errorf("duplicate field %q", name)
		}
		declared[name] = struct{}{}
		f := schema.Field{Name: name, Type: schema.TypeString, Nullable: true}
		pos, existing := index[name]
		if existing {
			f = fields[pos]
		}
		if d.Type != "" {
			t, ok := schema.ParseFieldType(d.Type)
			if !ok {
				return schema.ProfileFields{}, errors.Errorf("field %s: unknown type %q", name, d.Type)
			}
			f.Type = t
		} else if !existing {
			return schema.ProfileFields{}, errors.Errorf("field %s: type is required", name)
		}
		if d.Nullable != nil {
			f.Nullable = *d.Nullable
		}
		if d.Unique != nil {
			f.Unique = *d.Unique
		}
		if d.Format != "" {
			f.Format = d.Format
		}
		if existing {
			fields[pos] = f
			continue
		}
		index[name] = len(fields)
		fields = append(fields, f)
	}
	pf, err := schema.NewProfileFields(fields)
	if err != nil {
		return schema.ProfileFields{}, errors.Wrap(err, "declare fields")
	}
	return pf, nil
}
