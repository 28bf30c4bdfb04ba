package adapter

import (
	"github.com/invopop/jsonschema"
)

// DownloadedURL is one successful download of the collection stage.
type DownloadedURL struct {
	URL  string `json:"url" jsonschema:"format=uri"`
	File string `json:"file"`
}

// Record documents the shape of metadata-cc.json. Transform copies values
// verbatim, so this type only describes the output.
type Record struct {
	ID                       string          `json:"id"`
	Title                    string          `json:"title"`
	Description              string          `json:"description"`
	Author                   string          `json:"author"`
	Tags                     []string        `json:"tags"`
	DownloadedURLs           []DownloadedURL `json:"downloadedURLs"`
	FailedURLs               []any           `json:"failedURLs"`
	Classes                  []string        `json:"classes"`
	Literals                 []string        `json:"literals"`
	Entities                 []string        `json:"entities"`
	Properties               []string        `json:"properties"`
	Connections              int             `json:"connections" jsonschema:"minimum=0"`
	ConnectedVertices        int             `json:"connectedVertices" jsonschema:"minimum=0"`
	AverageLiteralsPerVertex float64         `json:"averageLiteralsPerVertex" jsonschema:"minimum=0"`
	UsedFiles                []string        `json:"usedFiles"`
	UnusedFiles              []string        `json:"unusedFiles"`
}

// Schema returns the JSON Schema of the adapted sidecar.
func Schema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return reflector.Reflect(&Record{})
}
