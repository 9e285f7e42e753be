package registry

import (
	"os"
	"path/filepath"
	"testing"
)

const manifestYAML = `agents:
  - name: currency
    description: Currency exchange agent
    url: http://fx.internal:7001/
    version: 1.0.0
    capabilities:
      streaming: true
    skills:
      - id: fx
        name: currency_exchange
        description: Convert between currencies
        tags: [usd, inr]
  - name: weather
    url: http://weather.internal:7002/
    skills:
      - name: forecast
        tags: [weather, temperature]
`

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agents.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	return path
}

func TestRegisterManifest(t *testing.T) {
	reg := New()
	count, err := reg.RegisterManifest(writeManifest(t, manifestYAML))
	if err != nil {
		t.Fatalf("RegisterManifest: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	currency, ok := reg.Get("currency")
	if !ok {
		t.Fatal("currency not registered")
	}
	if !currency.Capabilities.Streaming {
		t.Error("streaming capability lost")
	}
	if len(currency.Skills) != 1 || currency.Skills[0].Tags[0] != "usd" {
		t.Errorf("skills = %+v", currency.Skills)
	}

	list := reg.List()
	if list[0].Name != "currency" || list[1].Name != "weather" {
		t.Errorf("manifest order not preserved: %v, %v", list[0].Name, list[1].Name)
	}
}

func TestRegisterManifestInvalidAgent(t *testing.T) {
	reg := New()
	_, err := reg.RegisterManifest(writeManifest(t, "agents:\n  - name: broken\n    url: not-a-url\n"))
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestRegisterManifestMissingFile(t *testing.T) {
	reg := New()
	if _, err := reg.RegisterManifest(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
