package dashboard

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/telemetry"
)

func TestRenderMissingEnv(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "")
	if err := Render(t.TempDir()); err == nil {
		t.Fatalf("expected error for missing env vars")
	}
}

func TestRenderSuccess(t *testing.T) {
	t.Setenv("GREPTIMEDB_DATASOURCE_UID", "uid1")

	dir := t.TempDir()
	if err := Render(dir); err != nil {
		t.Fatalf("render failed: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(dir, "grafana-dashboard.json"))
	if err != nil {
		t.Fatalf("read dashboard: %v", err)
	}
	out := string(b)
	if !strings.Contains(out, `"uid": "uid1"`) {
		t.Fatalf("greptime uid not rendered")
	}
	if !strings.Contains(out, "FROM "+telemetry.TelemetryTableName) {
		t.Fatalf("telemetry table not rendered")
	}
	if !strings.Contains(out, "FROM "+path.EventTableName) {
		t.Fatalf("event table not rendered")
	}

	var doc struct {
		Panels []struct {
			Title string `json:"title"`
		} `json:"panels"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("decode dashboard: %v", err)
	}
	if len(doc.Panels) != 5 {
		t.Fatalf("expected 5 panels, got %d", len(doc.Panels))
	}
}
