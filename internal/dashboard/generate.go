package dashboard

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/telemetry"
)

//go:embed templates/*.json.tmpl
var templateFS embed.FS

var templateFiles = []string{
	"grafana-dashboard.json.tmpl",
}

func funcMap() template.FuncMap {
	return template.FuncMap{
		"env": func(key string) (string, error) {
			v := os.Getenv(key)
			if v == "" {
				return "", fmt.Errorf("environment variable %s not set", key)
			}
			return v, nil
		},
		"telemetryTable": func() string { return telemetry.TelemetryTableName },
		"eventTable":     func() string { return path.EventTableName },
	}
}

// Render parses dashboard templates and writes rendered dashboards to outDir.
func Render(outDir string) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, name := range templateFiles {
		t, err := template.New(name).Funcs(funcMap()).ParseFS(templateFS, "templates/"+name)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		if err := t.Execute(&buf, nil); err != nil {
			return err
		}
		if !json.Valid(buf.Bytes()) {
			return fmt.Errorf("dashboard %s: rendered output is not valid JSON", name)
		}
		outPath := filepath.Join(outDir, strings.TrimSuffix(name, ".tmpl"))
		if err := os.WriteFile(outPath, buf.Bytes(), 0o644); err != nil {
			return err
		}
	}
	return nil
}
