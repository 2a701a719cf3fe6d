package authzserver

import (
	"os"
	"path/filepath"
	"testing"
)

const testConfig = `
address: ":5000"
issuer: "covid19-rest-server"
sign_private_key_path: "config/keys/private.pem"
verify_public_key_path: "config/keys/public.pem"
upstream_url: "https://disease.sh/v3/covid-19/"
clients:
  - client_id: "gemba"
    redirect_uri: "http://localhost:5000/callback"
users:
  - username: "user"
    password: "pass"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigFile(t *testing.T) {
	config, err := LoadConfigFile(writeConfig(t, testConfig))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if config.Issuer != "covid19-rest-server" {
		t.Fatalf("issuer = %q", config.Issuer)
	}
	if len(config.Clients) != 1 || config.Clients[0].ClientID != "gemba" {
		t.Fatalf("unexpected clients: %+v", config.Clients)
	}
	if len(config.Users) != 1 || config.Users[0].Username != "user" {
		t.Fatalf("unexpected users: %+v", config.Users)
	}
}

func TestLoadConfigFileRejectsIncompleteConfig(t *testing.T) {
	// a config without key paths must not validate
	incomplete := `
address: ":5000"
issuer: "covid19-rest-server"
upstream_url: "https://disease.sh/v3/covid-19/"
clients:
  - client_id: "gemba"
    redirect_uri: "http://localhost:5000/callback"
users:
  - username: "user"
    password: "pass"
`
	if _, err := LoadConfigFile(writeConfig(t, incomplete)); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
