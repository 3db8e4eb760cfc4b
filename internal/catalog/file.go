package catalog

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type menuFile struct {
	Services []Service `yaml:"services"`
}

// LoadServices reads a YAML service menu. Positions default to file order.
func LoadServices(r io.Reader) ([]Service, error) {
	var file menuFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("catalog: decode menu: %w", err)
	}
	if len(file.Services) == 0 {
		return nil, fmt.Errorf("catalog: menu has no services")
	}
	seen := make(map[string]struct{}, len(file.Services))
	for i := range file.Services {
		svc := &file.Services[i]
		svc.ID = strings.TrimSpace(svc.ID)
		svc.Name = strings.TrimSpace(svc.Name)
		if svc.ID == "" || svc.Name == "" {
			return nil, fmt.Errorf("catalog: service %d needs an id and a name", i+1)
		}
		if _, dup := seen[svc.ID]; dup {
			return nil, fmt.Errorf("catalog: duplicate service id %q", svc.ID)
		}
		seen[svc.ID] = struct{}{}
		switch svc.Category {
		case CategoryWash, CategoryRepair, CategoryMaintenance:
		default:
			return nil, fmt.Errorf("catalog: service %q has unknown category %q", svc.ID, svc.Category)
		}
		if svc.Price < 0 {
			return nil, fmt.Errorf("catalog: service %q has a negative price", svc.ID)
		}
		if svc.Position == 0 {
			svc.Position = i + 1
		}
	}
	return file.Services, nil
}
