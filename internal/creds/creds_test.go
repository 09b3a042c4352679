package creds

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write temp creds: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeTemp(t, `{"address":"robot.example.viam.cloud","entity_id":"abc","api_key":"secret"}`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Address != "robot.example.viam.cloud" || c.EntityID != "abc" || c.APIKey != "secret" {
		t.Errorf("unexpected credentials: %+v", c)
	}
}

func TestLoadMissingField(t *testing.T) {
	path := writeTemp(t, `{"address":"robot.example.viam.cloud","entity_id":"abc"}`)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "api_key") {
		t.Fatalf("expected missing api_key error, got %v", err)
	}
}

func TestLoadBadJSON(t *testing.T) {
	path := writeTemp(t, `{`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected read error")
	}
}
