package schema

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

type yamlFile struct {
	Templates []*Definition `yaml:"templates"`
}

// LoadYAML merges template definitions from a YAML document into the
// registry. Definitions with a known templateKey replace the built-in;
// new keys are added. Intended for deployment-specific template catalogs.
func (r *Registry) LoadYAML(src io.Reader) error {
	raw, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read templates: %w", err)
	}
	var f yamlFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("decode templates: %w", err)
	}
	for i, d := range f.Templates {
		if d.TemplateKey == "" {
			return fmt.Errorf("templates[%d]: missing templateKey", i)
		}
		if len(d.Fields) == 0 {
			return fmt.Errorf("template %s: no fields", d.TemplateKey)
		}
		for _, fd := range d.Fields {
			if fd.Key == "" {
				return fmt.Errorf("template %s: field with empty key", d.TemplateKey)
			}
			switch fd.Type {
			case TypeString, TypeDate, TypeEnum, TypeNumber:
			default:
				return fmt.Errorf("template %s: field %s: unknown type %q", d.TemplateKey, fd.Key, fd.Type)
			}
			if fd.DefaultOnMismatch && !fd.HasOption(fd.DefaultOption) {
				return fmt.Errorf("template %s: field %s: defaultOption %q not in options", d.TemplateKey, fd.Key, fd.DefaultOption)
			}
		}
		r.register(d)
	}
	return nil
}
