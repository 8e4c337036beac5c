package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/fulmenhq/pyreview/internal/assets"
)

// CurrentSchemaVersion is the config schema version new files should declare
const CurrentSchemaVersion = "1.0.0"

// SchemaVersion represents a configuration schema version
type SchemaVersion struct {
	Major int
	Minor int
	Patch int
}

// String returns the string representation of the version
func (v SchemaVersion) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseSchemaVersion parses a version string into SchemaVersion
func ParseSchemaVersion(version string) (SchemaVersion, error) {
	version = strings.TrimPrefix(version, "v")
	parts := strings.Split(version, ".")
	if len(parts) != 3 {
		return SchemaVersion{}, fmt.Errorf("invalid version format: %s", version)
	}

	var v SchemaVersion
	_, err := fmt.Sscanf(version, "%d.%d.%d", &v.Major, &v.Minor, &v.Patch)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("failed to parse version: %v", err)
	}

	return v, nil
}

// ValidateConfigFile reads a YAML or JSON config file and validates it
func ValidateConfigFile(path string) error {
	data, err := os.ReadFile(path) // #nosec G304 -- config path chosen by the user or viper's search
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := ValidateConfig(data); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// ValidateConfig validates configuration data (YAML or JSON) against the embedded schema
// matching its declared version
func ValidateConfig(configData []byte) error {
	var doc interface{}
	if err := yaml.Unmarshal(configData, &doc); err != nil {
		return fmt.Errorf("%w: not valid YAML: %v", ErrInvalidConfig, err)
	}
	if doc == nil {
		// empty file: defaults apply
		return nil
	}
	root, ok := doc.(map[string]interface{})
	if !ok {
		return fmt.Errorf("%w: top level must be a mapping", ErrInvalidConfig)
	}

	version, err := DetectSchemaVersion(root)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	schemaLoader, err := getSchemaLoader(version)
	if err != nil {
		return fmt.Errorf("%w: failed to load schema for version %s: %v", ErrInvalidConfig, version, err)
	}

	result, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(root))
	if err != nil {
		return fmt.Errorf("%w: schema validation error: %v", ErrInvalidConfig, err)
	}

	if !result.Valid() {
		var errs []string
		for _, desc := range result.Errors() {
			errs = append(errs, "- "+desc.String())
		}
		return fmt.Errorf("%w: configuration validation failed:\n%s", ErrInvalidConfig, strings.Join(errs, "\n"))
	}

	return nil
}

// getSchemaLoader returns the embedded schema for the given version
func getSchemaLoader(version string) (gojsonschema.JSONLoader, error) {
	v, err := ParseSchemaVersion(version)
	if err != nil {
		return nil, err
	}
	if v.Major != 1 {
		return nil, fmt.Errorf("unsupported schema version: %s", version)
	}
	raw, ok := assets.GetSchema(assets.ConfigSchemaV1)
	if !ok {
		return nil, fmt.Errorf("embedded schema %s missing", assets.ConfigSchemaV1)
	}
	var schema interface{}
	if err := yaml.Unmarshal(raw, &schema); err != nil {
		return nil, fmt.Errorf("embedded schema is not valid YAML: %v", err)
	}
	return gojsonschema.NewGoLoader(schema), nil
}

// DetectSchemaVersion reads the version from the config's $schema URL, defaulting to the
// current version when none is declared
func DetectSchemaVersion(config map[string]interface{}) (string, error) {
	schema, ok := config["$schema"]
	if !ok {
		return CurrentSchemaVersion, nil
	}
	schemaStr, ok := schema.(string)
	if !ok {
		return "", fmt.Errorf("$schema must be a string")
	}
	for _, part := range strings.Split(schemaStr, "/") {
		if strings.HasPrefix(part, "v") && strings.Count(part, ".") == 2 {
			if _, err := ParseSchemaVersion(part); err == nil {
				return strings.TrimPrefix(part, "v"), nil
			}
		}
	}
	return CurrentSchemaVersion, nil
}
