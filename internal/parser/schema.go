package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jsonschemav5 "github.com/santhosh-tekuri/jsonschema/v5"

	"loanterms/internal/domain"
)

var (
	schemaOnce     sync.Once
	schemaJSON     []byte
	schemaCompiled *jsonschemav5.Schema
	schemaErr      error
)

func loadSchema() {
	r := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		ExpandedStruct:            true,
		Anonymous:                 true,
	}
	s := r.Reflect(&domain.ContractFields{})
	s.Version = ""
	s.ID = ""

	schemaJSON, schemaErr = json.Marshal(s)
	if schemaErr != nil {
		schemaErr = fmt.Errorf("marshaling contract schema: %w", schemaErr)
		return
	}

	compiler := jsonschemav5.NewCompiler()
	if err := compiler.AddResource("contract.json", bytes.NewReader(schemaJSON)); err != nil {
		schemaErr = fmt.Errorf("adding contract schema: %w", err)
		return
	}
	schemaCompiled, schemaErr = compiler.Compile("contract.json")
	if schemaErr != nil {
		schemaErr = fmt.Errorf("compiling contract schema: %w", schemaErr)
	}
}

// ContractFieldsSchemaJSON returns the JSON schema for domain.ContractFields
// with properties in declaration order. All properties are required strings
// and additional properties are rejected.
func ContractFieldsSchemaJSON() (json.RawMessage, error) {
	schemaOnce.Do(loadSchema)
	if schemaErr != nil {
		return nil, schemaErr
	}
	return json.RawMessage(schemaJSON), nil
}

// ContractFieldsSchema returns the schema as a generic map.
func ContractFieldsSchema() (map[string]any, error) {
	raw, err := ContractFieldsSchemaJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshaling contract schema: %w", err)
	}
	return m, nil
}

// ValidateContractJSON checks a model payload against the contract schema.
func ValidateContractJSON(data []byte) error {
	schemaOnce.Do(loadSchema)
	if schemaErr != nil {
		return schemaErr
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidExtraction, err)
	}
	if err := schemaCompiled.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidExtraction, err)
	}
	return nil
}

// DecodeContractFields validates a model payload and decodes it.
func DecodeContractFields(data []byte) (domain.ContractFields, error) {
	if err := ValidateContractJSON(data); err != nil {
		return domain.ContractFields{}, err
	}
	var fields domain.ContractFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return domain.ContractFields{}, fmt.Errorf("%w: %v", domain.ErrInvalidExtraction, err)
	}
	return fields, nil
}

// Truncate shortens s for inclusion in error messages.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
