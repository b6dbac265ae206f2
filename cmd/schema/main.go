package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"

	"github.com/invopop/jsonschema"

	"github.com/VasilisChatzivasileiou/forlackofabettername/internal/net/proto"
)

func main() {
	var outPath string
	flag.StringVar(&outPath, "out", "", "path to write the JSON schema")
	flag.Parse()

	if outPath == "" {
		fmt.Fprintln(os.Stderr, "--out is required")
		os.Exit(1)
	}

	schema := buildSchema()

	if err := writeSchema(outPath, schema); err != nil {
		fmt.Fprintf(os.Stderr, "failed to write schema: %v\n", err)
		os.Exit(1)
	}
}

// buildSchema describes every relay frame as one alternative of a oneOf.
func buildSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: true,
		DoNotReference:            true,
	}

	var types []string
	for msgType := range proto.Messages() {
		types = append(types, msgType)
	}
	sort.Strings(types)

	root := &jsonschema.Schema{
		Version:     jsonschema.Version,
		Title:       "Relay Wire Protocol",
		Description: "JSON text frames exchanged between game clients and the relay, keyed by type",
		Definitions: jsonschema.Definitions{},
	}
	for _, msgType := range types {
		for _, msg := range proto.Messages()[msgType] {
			name := reflect.TypeOf(msg).Name()
			def := reflector.Reflect(msg)
			def.Version = ""
			def.Description = fmt.Sprintf("%s frame (type=%q)", name, msgType)
			root.Definitions[name] = def
			root.OneOf = append(root.OneOf, &jsonschema.Schema{Ref: "#/$defs/" + name})
		}
	}
	return root
}

func writeSchema(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create schema directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write temp schema: %w", err)
	}

	if err := os.Rename(tmpPath, outPath); err != nil {
		return fmt.Errorf("replace schema: %w", err)
	}

	return nil
}
