package assembler

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"go.uber.org/zap"
)

// Names of the entries in a zip bundle.
const (
	ZipIndexName = "index.html"
	ZipSpecName  = "openapi-spec.json"
)

var viewerTemplate = template.Must(template.New("viewer").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui.css">
    <style>
        body { margin: 0; padding: 0; font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; }
        #swagger-ui { padding: 20px; }
        .topbar { display: none; }
        .info { margin-bottom: 50px; }
        .scheme-container { background: #f7f7f7; padding: 15px; border-radius: 4px; margin-bottom: 20px; }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@5/swagger-ui-standalone-preset.js"></script>
    <script>
        const spec = {{.Spec}};
        window.onload = function() {
            window.ui = SwaggerUIBundle({
                spec: spec,
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [SwaggerUIBundle.presets.apis, SwaggerUIStandalonePreset],
                plugins: [SwaggerUIBundle.plugins.DownloadUrl],
                layout: "BaseLayout",
                tryItOutEnabled: true,
                supportedSubmitMethods: ['get', 'post', 'put', 'delete', 'patch']
            });
        };
    </script>
</body>
</html>
`))

// Bundle describes the files written for one document.
type Bundle struct {
	BaseName string   `json:"baseName"`
	HTMLPath string   `json:"htmlPath"`
	SpecPath string   `json:"specPath"`
	ZipPath  string   `json:"zipPath,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Writer publishes documents into an output directory.
type Writer struct {
	outputDir string
	now       func() time.Time
	logger    *zap.Logger
}

// NewWriter creates a Writer for outputDir.
func NewWriter(outputDir string, logger *zap.Logger) *Writer {
	return &Writer{
		outputDir: outputDir,
		now:       time.Now,
		logger:    logger.Named("assembler"),
	}
}

// WriteBundle writes <base>-spec.json and the <base>.html viewer, where base
// is api-docs-<unix millis>.
func (w *Writer) WriteBundle(doc *openapi3.T) (*Bundle, error) {
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	base := fmt.Sprintf("api-docs-%d", w.now().UnixMilli())
	bundle := &Bundle{
		BaseName: base,
		HTMLPath: filepath.Join(w.outputDir, base+".html"),
		SpecPath: filepath.Join(w.outputDir, base+"-spec.json"),
	}

	spec, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OpenAPI document: %w", err)
	}
	if err := os.WriteFile(bundle.SpecPath, spec, 0644); err != nil {
		return nil, fmt.Errorf("failed to write OpenAPI document: %w", err)
	}

	page, err := RenderViewer(doc)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(bundle.HTMLPath, page, 0644); err != nil {
		return nil, fmt.Errorf("failed to write HTML viewer: %w", err)
	}

	w.logger.Info("Generated HTML documentation", zap.String("html", bundle.HTMLPath), zap.String("spec", bundle.SpecPath))
	return bundle, nil
}

// WriteZip packs the viewer and document of bundle into <base>.zip.
func (w *Writer) WriteZip(doc *openapi3.T, bundle *Bundle) error {
	bundle.ZipPath = filepath.Join(w.outputDir, bundle.BaseName+".zip")

	var buf bytes.Buffer
	if err := Zip(&buf, doc); err != nil {
		return err
	}
	if err := os.WriteFile(bundle.ZipPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write zip bundle: %w", err)
	}
	w.logger.Info("Generated zip bundle", zap.String("zip", bundle.ZipPath))
	return nil
}

// Zip writes an archive holding index.html and openapi-spec.json.
func Zip(out io.Writer, doc *openapi3.T) error {
	page, err := RenderViewer(doc)
	if err != nil {
		return err
	}
	spec, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal OpenAPI document: %w", err)
	}

	zw := zip.NewWriter(out)
	for _, entry := range []struct {
		name string
		data []byte
	}{
		{ZipIndexName, page},
		{ZipSpecName, spec},
	} {
		f, err := zw.Create(entry.name)
		if err != nil {
			return fmt.Errorf("failed to add %s to zip: %w", entry.name, err)
		}
		if _, err := f.Write(entry.data); err != nil {
			return fmt.Errorf("failed to add %s to zip: %w", entry.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish zip: %w", err)
	}
	return nil
}

// RenderViewer renders the self-contained HTML viewer with doc embedded.
func RenderViewer(doc *openapi3.T) ([]byte, error) {
	spec, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OpenAPI document: %w", err)
	}

	title := "API Documentation"
	if doc.Info != nil && doc.Info.Title != "" {
		title = doc.Info.Title
	}

	var page bytes.Buffer
	err = viewerTemplate.Execute(&page, struct {
		Title string
		Spec  template.JS
	}{title, template.JS(spec)})
	if err != nil {
		return nil, fmt.Errorf("failed to render HTML viewer: %w", err)
	}
	return page.Bytes(), nil
}
