package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultSeed is the household tree the app ships with.
func DefaultSeed() []Node {
	return []Node{
		{Name: "Casa", Subcategories: []string{"Alquiler", "Expensas", "Servicio Limpieza", "Otros"}},
		{Name: "Salud y Cuidado Personal"},
		{Name: "Supermercado"},
		{Name: "Servicios Profesionales"},
		{Name: "Juana", Subcategories: []string{"Colegio", "Pañales", "Leche", "Otros"}},
		{Name: "Servicios", Subcategories: []string{"Cable", "Internet", "Servicio Entretenimiento", "Luz", "Gas"}},
		{Name: "Autos", Subcategories: []string{"Seguro", "Patente", "Mantenimiento"}},
		{Name: "Perra"},
		{Name: "Shopping/Compras"},
		{Name: "Salidas"},
	}
}

// Default returns a taxonomy seeded with DefaultSeed.
func Default() *Taxonomy {
	return New(DefaultSeed())
}

type seedFile struct {
	Categories []Node `yaml:"categories"`
}

// ParseSeed decodes a YAML document of the form
//
//	categories:
//	  - name: Casa
//	    subcategories: [Alquiler, Expensas]
//	  - name: Supermercado
func ParseSeed(data []byte) ([]Node, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse taxonomy: %w", err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("parse taxonomy: no categories")
	}
	return f.Categories, nil
}

// LoadFile builds a taxonomy from a YAML seed file. An empty path yields Default().
func LoadFile(path string) (*Taxonomy, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read taxonomy %s: %w", path, err)
	}
	seed, err := ParseSeed(data)
	if err != nil {
		return nil, err
	}
	return New(seed), nil
}

// MarshalSeed encodes nodes in the LoadFile format, custom categories included.
func MarshalSeed(nodes []Node) ([]byte, error) {
	return yaml.Marshal(seedFile{Categories: nodes})
}
