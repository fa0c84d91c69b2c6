package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParsePasswordsAcceptsComments(t *testing.T) {
	raw := []byte(`{
		// shared with the form integration
		"security_key": "s3cret",
		"graph_client_id": "app-id", /* app registration */
		"cw_site_url": "https://na.myconnectwise.net",
	}`)

	loaded, err := parsePasswords(raw)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.SECURITY_KEY != "s3cret" || loaded.GRAPH_CLIENT_ID != "app-id" || loaded.CW_SITE_URL != "https://na.myconnectwise.net" {
		t.Fatalf("loaded %#v", loaded)
	}
}

func TestExamplePasswordsFileParses(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("config", "passwords.example.jsonc"))
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := parsePasswords(raw)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.CLOUDRADIAL_BASE_URL == "" {
		t.Error("example file should carry the CloudRadial base url")
	}
}

func TestLoadPasswordsFromConfigDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "passwords.jsonc"), []byte(`{"admin_key": "adm", }`), 0600); err != nil {
		t.Fatal(err)
	}

	saved, savedEnv := passwords, env
	defer func() { passwords, env = saved, savedEnv }()

	env = &Env{ConfigDir: dir}
	loadPasswords()
	if passwords.ADMIN_KEY != "adm" {
		t.Fatalf("admin key %q", passwords.ADMIN_KEY)
	}
}
