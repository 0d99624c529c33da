package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func setupTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	viper.Reset()
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(filepath.Join(dir, ".splittable"))
	applyDefaults()

	t.Setenv("HOME", dir)
	t.Cleanup(func() {
		viper.Reset()
	})
	return dir
}

func hasIssue(issues []ConfigIssue, key, severity string) bool {
	for _, issue := range issues {
		if issue.Key == key && issue.Severity == severity {
			return true
		}
	}
	return false
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	defer viper.Reset()

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DigitLimit != 10 {
		t.Errorf("default digit_limit = %d", cfg.DigitLimit)
	}
	if cfg.CSV.Encoding != "auto" {
		t.Errorf("default csv.encoding = %q", cfg.CSV.Encoding)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.MaxUploadMB != 64 {
		t.Errorf("unexpected server defaults %+v", cfg.Server)
	}
	if !cfg.Output.Color || cfg.Output.Atomic {
		t.Errorf("unexpected output defaults %+v", cfg.Output)
	}
	if cfg.Watch.DebounceMs != 500 {
		t.Errorf("default watch.debounce_ms = %d", cfg.Watch.DebounceMs)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SPLITTABLE_DIGIT_LIMIT", "15")
	t.Setenv("SPLITTABLE_SERVER_ADDR", "127.0.0.1:9000")
	viper.Reset()
	defer viper.Reset()

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DigitLimit != 15 {
		t.Errorf("digit_limit = %d, want 15", cfg.DigitLimit)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
}

func TestLoadCustomFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	defer viper.Reset()

	path := filepath.Join(t.TempDir(), "team.yaml")
	if err := os.WriteFile(path, []byte("digit_limit: 15\ncsv:\n  encoding: gbk\n"), 0644); err != nil {
		t.Fatal(err)
	}
	SetFile(path)
	defer SetFile("")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.DigitLimit != 15 {
		t.Errorf("digit_limit = %d, want 15", cfg.DigitLimit)
	}
	if cfg.CSV.Encoding != "gbk" {
		t.Errorf("csv.encoding = %q, want gbk", cfg.CSV.Encoding)
	}
	if ConfigPath() != path {
		t.Errorf("ConfigPath() = %q, want %q", ConfigPath(), path)
	}
}

func TestLoadMissingCustomFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	viper.Reset()
	defer viper.Reset()

	SetFile(filepath.Join(t.TempDir(), "nope.yaml"))
	defer SetFile("")

	if _, err := Load(); err == nil {
		t.Error("expected an error for a missing --config file")
	}
}

func TestLoadMalformedFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	viper.Reset()
	defer viper.Reset()

	dir := filepath.Join(home, ".splittable")
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("digit_limit: [unclosed\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := Load(); err == nil {
		t.Error("expected an error for a malformed config.yaml")
	}
}

func TestValidateDefaults(t *testing.T) {
	setupTestConfig(t)

	issues := Validate()
	for _, issue := range issues {
		if issue.Severity == "error" {
			t.Errorf("unexpected error for defaults: %s", issue.Message)
		}
	}
	if !hasIssue(issues, "watch.rules", "warning") {
		t.Error("expected warning about missing watch rules")
	}
}

func TestValidateBadValues(t *testing.T) {
	setupTestConfig(t)
	viper.Set("digit_limit", 0)
	viper.Set("csv.encoding", "latin1")
	viper.Set("server.addr", "8080")
	viper.Set("log.level", "loud")

	issues := Validate()
	for _, want := range []struct{ key, severity string }{
		{"digit_limit", "error"},
		{"csv.encoding", "error"},
		{"server.addr", "error"},
		{"log.level", "warning"},
	} {
		if !hasIssue(issues, want.key, want.severity) {
			t.Errorf("expected %s issue for %s", want.severity, want.key)
		}
	}
}

func TestToEnv(t *testing.T) {
	setupTestConfig(t)
	viper.Set("digit_limit", 12)
	viper.Set("csv.encoding", "gbk")

	env := ToEnv()
	if env["SPLITTABLE_DIGIT_LIMIT"] != "12" {
		t.Errorf("SPLITTABLE_DIGIT_LIMIT = %q", env["SPLITTABLE_DIGIT_LIMIT"])
	}
	if env["SPLITTABLE_CSV_ENCODING"] != "gbk" {
		t.Errorf("SPLITTABLE_CSV_ENCODING = %q", env["SPLITTABLE_CSV_ENCODING"])
	}
	if env["SPLITTABLE_SERVER_MAX_UPLOAD_MB"] != "64" {
		t.Errorf("SPLITTABLE_SERVER_MAX_UPLOAD_MB = %q", env["SPLITTABLE_SERVER_MAX_UPLOAD_MB"])
	}
}

func TestSetAndGet(t *testing.T) {
	dir := setupTestConfig(t)

	if err := Set("csv.encoding", "gb18030"); err != nil {
		t.Fatal(err)
	}
	if got := Get("csv.encoding"); got != "gb18030" {
		t.Errorf("Get(csv.encoding) = %q, want %q", got, "gb18030")
	}
	if _, err := os.Stat(filepath.Join(dir, ".splittable", "config.yaml")); err != nil {
		t.Errorf("config file not written: %v", err)
	}
}

func TestSetUnknownKey(t *testing.T) {
	setupTestConfig(t)
	if err := Set("provider", "openai"); err == nil {
		t.Error("expected error for unknown key")
	}
}

func TestShowConfig(t *testing.T) {
	setupTestConfig(t)
	viper.Set("server.addr", ":9999")

	output := ShowConfig()
	if !strings.Contains(output, ":9999") {
		t.Error("ShowConfig should contain server address")
	}
	if !strings.Contains(output, "digit_limit") {
		t.Error("ShowConfig should contain digit_limit")
	}
}

func TestWizardNonInteractive(t *testing.T) {
	dir := setupTestConfig(t)
	viper.Set("digit_limit", 3)

	if err := WizardNonInteractive(); err != nil {
		t.Fatal(err)
	}
	if viper.GetInt("digit_limit") != 10 {
		t.Errorf("digit_limit = %d", viper.GetInt("digit_limit"))
	}
	if _, err := os.Stat(filepath.Join(dir, ".splittable", "config.yaml")); err != nil {
		t.Errorf("config file not written: %v", err)
	}
}

func TestWizardInteractive(t *testing.T) {
	setupTestConfig(t)

	// digit limit 12, GBK, keep server address
	input := strings.NewReader("12\n3\n\n")
	if err := Wizard(input); err != nil {
		t.Fatal(err)
	}
	if viper.GetInt("digit_limit") != 12 {
		t.Errorf("digit_limit = %d", viper.GetInt("digit_limit"))
	}
	if viper.GetString("csv.encoding") != "gbk" {
		t.Errorf("csv.encoding = %q", viper.GetString("csv.encoding"))
	}
	if viper.GetString("server.addr") != ":8080" {
		t.Errorf("server.addr = %q", viper.GetString("server.addr"))
	}
}

func TestWizardRejectsBadDigitLimit(t *testing.T) {
	setupTestConfig(t)

	if err := Wizard(strings.NewReader("-4\n\n\n")); err != nil {
		t.Fatal(err)
	}
	if viper.GetInt("digit_limit") != 10 {
		t.Errorf("digit_limit = %d, want unchanged 10", viper.GetInt("digit_limit"))
	}
}

func TestConfigPath(t *testing.T) {
	path := ConfigPath()
	if !strings.Contains(path, ".splittable") || !strings.Contains(path, "config.yaml") {
		t.Errorf("unexpected path: %q", path)
	}
	if filepath.Dir(RulesPath()) != filepath.Dir(path) {
		t.Errorf("rules file should live next to config: %q", RulesPath())
	}
}

func TestResetConfig(t *testing.T) {
	setupTestConfig(t)

	viper.Set("digit_limit", 4)
	if err := SaveConfig(); err != nil {
		t.Fatal(err)
	}

	if err := ResetConfig(); err != nil {
		t.Fatal(err)
	}
	if viper.GetInt("digit_limit") != 10 {
		t.Errorf("digit_limit should reset to default, got %d", viper.GetInt("digit_limit"))
	}
	if _, err := os.Stat(ConfigPath()); !os.IsNotExist(err) {
		t.Error("config file should be removed")
	}
}

func TestKeys(t *testing.T) {
	keys := Keys()
	if len(keys) == 0 || keys[0] != "digit_limit" {
		t.Errorf("unexpected keys %v", keys)
	}
	if !IsKnownKey("server.addr") || IsKnownKey("nope") {
		t.Error("IsKnownKey mismatch")
	}
}
