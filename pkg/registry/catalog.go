package registry

import (
	"encoding/json"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	mcperrors "github.com/ajitpratap0/mcp-orchestrator/pkg/errors"
	"github.com/ajitpratap0/mcp-orchestrator/pkg/protocol"
)

var emptyObjectSchema = json.RawMessage(`{"type":"object"}`)

// validateCatalog checks every descriptor and returns an owned copy. Names
// must be unique within the catalog. A tool without an input schema is given
// an empty object schema.
func validateCatalog(backendID string, tools []protocol.ToolDescriptor) ([]protocol.ToolDescriptor, error) {
	out := make([]protocol.ToolDescriptor, 0, len(tools))
	seen := make(map[string]struct{}, len(tools))
	for _, tool := range tools {
		if strings.TrimSpace(tool.Name) == "" {
			return nil, mcperrors.InvalidCatalog(backendID, tool.Name, "tool name is empty", nil)
		}
		if _, dup := seen[tool.Name]; dup {
			return nil, mcperrors.InvalidCatalog(backendID, tool.Name, "tool name is advertised more than once", nil)
		}
		seen[tool.Name] = struct{}{}

		schema := append(json.RawMessage(nil), tool.InputSchema...)
		if len(schema) == 0 || string(schema) == "null" {
			schema = append(json.RawMessage(nil), emptyObjectSchema...)
		} else if err := validateSchema(backendID, tool.Name, schema); err != nil {
			return nil, err
		}

		tool.InputSchema = schema
		out = append(out, tool)
	}
	return out, nil
}

func validateSchema(backendID, tool string, raw json.RawMessage) error {
	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return mcperrors.InvalidCatalog(backendID, tool, "input schema is not a JSON Schema object", err)
	}
	if s.Type != "" && s.Type != "object" {
		return mcperrors.InvalidCatalog(backendID, tool, "input schema type must be object, got "+s.Type, nil)
	}
	if len(s.Types) > 0 {
		return mcperrors.InvalidCatalog(backendID, tool, "input schema type must be object, got "+strings.Join(s.Types, ","), nil)
	}
	if _, err := s.Resolve(nil); err != nil {
		return mcperrors.InvalidCatalog(backendID, tool, "input schema does not resolve", err)
	}
	return nil
}

func toolNames(tools []protocol.ToolDescriptor) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}
