package config

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/stafflink/tender-pipeline/internal/scrape"
)

//go:embed tables/*.json
var tableFS embed.FS

// agencyTables is the shape of tables/agencies.json.
type agencyTables struct {
	Agencies  map[string]string `json:"agencies"`
	Landmarks map[string]string `json:"landmarks"`
}

// profileTables is the shape of tables/profiles.json.
type profileTables struct {
	Profiles map[string]scrape.Profile `json:"profiles"`
}

// LoadAgencyTables returns the known-agency and landmark canonicalization
// tables, validated against their embedded JSON schema.
func LoadAgencyTables() (agencies, landmarks map[string]string, err error) {
	data, err := loadValidated("tables/agencies.json", "tables/agencies.schema.json")
	if err != nil {
		return nil, nil, err
	}

	var tables agencyTables
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, nil, fmt.Errorf("failed to parse agency tables: %w", err)
	}

	return lowercaseKeys(tables.Agencies), lowercaseKeys(tables.Landmarks), nil
}

// LoadProfileTable returns the category estimation profiles, validated
// against their embedded JSON schema.
func LoadProfileTable() (map[string]scrape.Profile, error) {
	data, err := loadValidated("tables/profiles.json", "tables/profiles.schema.json")
	if err != nil {
		return nil, err
	}

	var tables profileTables
	if err := json.Unmarshal(data, &tables); err != nil {
		return nil, fmt.Errorf("failed to parse profile table: %w", err)
	}

	return tables.Profiles, nil
}

// loadValidated reads an embedded table and validates it against its schema
// before returning the raw bytes.
func loadValidated(dataPath, schemaPath string) ([]byte, error) {
	data, err := tableFS.ReadFile(dataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded table %s: %w", dataPath, err)
	}
	schema, err := tableFS.ReadFile(schemaPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded schema %s: %w", schemaPath, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("schema validation of %s failed to run: %w", dataPath, err)
	}
	if !result.Valid() {
		var sb strings.Builder
		for _, desc := range result.Errors() {
			sb.WriteString(desc.String())
			sb.WriteString("; ")
		}
		return nil, fmt.Errorf("embedded table %s violates its schema: %s", dataPath, sb.String())
	}

	return data, nil
}

func lowercaseKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
