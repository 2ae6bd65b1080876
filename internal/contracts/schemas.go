package contracts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed schemas
var schemasFS embed.FS

const (
	GatewayCallback = "GatewayCallback/1.0.0"
	EventEnvelope   = "EventsEnvelope/1.0.0"
)

// Registry — скомпилированные схемы по ключу вида "GatewayCallback/1.0.0".
type Registry struct {
	schemas map[string]*jsonschema.Schema
}

// Load компилирует все схемы из schemas/**.json.
func Load() (*Registry, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	var paths []string
	err := fs.WalkDir(schemasFS, "schemas", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".json") {
			return nil
		}
		f, err := schemasFS.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := compiler.AddResource(path, f); err != nil {
			return fmt.Errorf("add schema resource %s: %w", path, err)
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	reg := &Registry{schemas: make(map[string]*jsonschema.Schema, len(paths))}
	for _, path := range paths {
		s, err := compiler.Compile(path)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", path, err)
		}
		reg.schemas[keyFromPath(path)] = s
	}
	return reg, nil
}

// keyFromPath: "schemas/gateway/callback-v1.json" -> "GatewayCallback/1.0.0".
func keyFromPath(path string) string {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(path, "schemas/"), ".json")
	dir, file, ok := strings.Cut(trimmed, "/")
	if !ok {
		return trimmed
	}
	idx := strings.LastIndex(file, "-v")
	if idx < 0 {
		return trimmed
	}
	name, version := file[:idx], file[idx+2:]

	caser := cases.Title(language.English)
	var b strings.Builder
	b.WriteString(caser.String(dir))
	for _, part := range strings.Split(name, "-") {
		b.WriteString(caser.String(part))
	}
	return fmt.Sprintf("%s/%s.0.0", b.String(), version)
}

func (r *Registry) Has(key string) bool {
	_, ok := r.schemas[key]
	return ok
}

// Validate проверяет JSON-документ по схеме key.
func (r *Registry) Validate(key string, body []byte) error {
	schema, ok := r.schemas[key]
	if !ok {
		return fmt.Errorf("schema %q not found", key)
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("body is not a valid JSON: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("JSON schema validation failed: %w", err)
	}
	return nil
}
