package assets

import (
	"embed"
	"io/fs"
)

//go:embed embedded_templates
var Templates embed.FS

//go:embed embedded_schemas
var Schemas embed.FS

// Paths of curated assets inside their filesystems
const (
	ReportHTMLTemplate = "report.html.hbs"
	ConfigSchemaV1     = "config/pyreview-config-v1.0.0.yaml"
)

func GetTemplatesFS() fs.FS {
	if sub, err := fs.Sub(Templates, "embedded_templates"); err == nil {
		return sub
	}
	return Templates
}

func GetSchemasFS() fs.FS {
	if sub, err := fs.Sub(Schemas, "embedded_schemas"); err == nil {
		return sub
	}
	return Schemas
}

// GetSchema returns an embedded schema by path relative to the schemas root
func GetSchema(relPath string) ([]byte, bool) {
	data, err := fs.ReadFile(GetSchemasFS(), relPath)
	return data, err == nil
}

// GetTemplate returns an embedded template by path relative to the templates root
func GetTemplate(relPath string) ([]byte, bool) {
	data, err := fs.ReadFile(GetTemplatesFS(), relPath)
	return data, err == nil
}
