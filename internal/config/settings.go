package config

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/yangming0322/splittable/internal/formats/csv"
)

// ConfigIssue represents a validation finding.
type ConfigIssue struct {
	Key      string `json:"key"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Fix      string `json:"fix"`
}

// Wizard runs the interactive setup wizard.
// If reader is nil, reads from os.Stdin.
func Wizard(reader io.Reader) error {
	if reader == nil {
		reader = os.Stdin
	}
	scanner := bufio.NewScanner(reader)

	fmt.Println("splittable setup")
	fmt.Println()
	fmt.Println(strings.Repeat("-", 48))
	fmt.Println()

	// Step 1: digit limit
	fmt.Println("Step 1/3: Long numbers")
	fmt.Println("  Integer columns with more digits than this are written as text,")
	fmt.Println("  so Excel does not round IDs and phone numbers.")
	fmt.Printf("  Digit limit (default: %d): ", viper.GetInt("digit_limit"))
	scanner.Scan()
	if v := strings.TrimSpace(scanner.Text()); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			fmt.Println("  Not a positive number, keeping the current value")
		} else {
			viper.Set("digit_limit", n)
		}
	}
	fmt.Println()

	// Step 2: CSV encoding
	fmt.Println("Step 2/3: CSV encoding")
	fmt.Println("  [1] Detect automatically (recommended)")
	fmt.Println("  [2] UTF-8")
	fmt.Println("  [3] GBK")
	fmt.Println("  [4] GB18030")
	fmt.Print("  Choice: ")
	scanner.Scan()
	switch strings.TrimSpace(scanner.Text()) {
	case "2":
		viper.Set("csv.encoding", csv.EncodingUTF8)
	case "3":
		viper.Set("csv.encoding", csv.EncodingGBK)
	case "4":
		viper.Set("csv.encoding", csv.EncodingGB18030)
	case "1":
		viper.Set("csv.encoding", csv.EncodingAuto)
	default:
		fmt.Println("  Skipped")
	}
	fmt.Println()

	// Step 3: server
	fmt.Println("Step 3/3: HTTP server (optional)")
	fmt.Printf("  Listen address for 'splittable serve' (default: %s): ", viper.GetString("server.addr"))
	scanner.Scan()
	if addr := strings.TrimSpace(scanner.Text()); addr != "" {
		viper.Set("server.addr", addr)
	}
	fmt.Println()

	if err := SaveConfig(); err != nil {
		return fmt.Errorf("could not save config: %w", err)
	}

	fmt.Println(strings.Repeat("-", 48))
	fmt.Println()
	fmt.Println("splittable is ready!")
	fmt.Println()
	fmt.Println("Quick start:")
	fmt.Println("  splittable preview data.xlsx")
	fmt.Println("  splittable split data.xlsx --boundary Name --group Dept --out /tmp/split")
	fmt.Println("  splittable shell data.csv")
	fmt.Println()
	fmt.Printf("Config file: %s\n", ConfigPath())
	fmt.Println("Type 'splittable config show' to see all settings.")

	return nil
}

// WizardNonInteractive writes the defaults to disk without asking anything.
func WizardNonInteractive() error {
	applyDefaults()
	return SaveConfig()
}

// Validate checks config values and returns a list of issues.
func Validate() []ConfigIssue {
	var issues []ConfigIssue

	if n := viper.GetInt("digit_limit"); n <= 0 {
		issues = append(issues, ConfigIssue{
			Key:      "digit_limit",
			Severity: "error",
			Message:  fmt.Sprintf("digit_limit is %d — it must be a positive number of digits", n),
			Fix:      "splittable config set digit_limit 10",
		})
	}

	switch enc := strings.ToLower(viper.GetString("csv.encoding")); enc {
	case "", csv.EncodingAuto, csv.EncodingUTF8, "utf8", csv.EncodingGBK, csv.EncodingGB18030:
		issues = append(issues, ConfigIssue{
			Key:      "csv.encoding",
			Severity: "info",
			Message:  fmt.Sprintf("CSV encoding: %s", orDefault(enc, csv.EncodingAuto)),
		})
	default:
		issues = append(issues, ConfigIssue{
			Key:      "csv.encoding",
			Severity: "error",
			Message:  fmt.Sprintf("csv.encoding %q is not supported", enc),
			Fix:      "splittable config set csv.encoding auto",
		})
	}

	if addr := viper.GetString("server.addr"); addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			issues = append(issues, ConfigIssue{
				Key:      "server.addr",
				Severity: "error",
				Message:  fmt.Sprintf("server.addr %q is not host:port", addr),
				Fix:      "splittable config set server.addr :8080",
			})
		}
	}

	if mb := viper.GetInt("server.max_upload_mb"); mb <= 0 {
		issues = append(issues, ConfigIssue{
			Key:      "server.max_upload_mb",
			Severity: "error",
			Message:  "server.max_upload_mb must be positive",
			Fix:      "splittable config set server.max_upload_mb 64",
		})
	}

	switch level := viper.GetString("log.level"); strings.ToLower(level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		issues = append(issues, ConfigIssue{
			Key:      "log.level",
			Severity: "warning",
			Message:  fmt.Sprintf("log.level %q is unknown — info will be used", level),
			Fix:      "splittable config set log.level info",
		})
	}

	if _, err := os.Stat(RulesPath()); err != nil {
		issues = append(issues, ConfigIssue{
			Key:      "watch.rules",
			Severity: "warning",
			Message:  "no watch rules file — splittable watch will have nothing to do",
			Fix:      "splittable watch start --dir <folder> --boundary <col> --group <col> --out <folder>",
		})
	}

	return issues
}

// ToEnv returns all config values as a map of env var name -> value.
func ToEnv() map[string]string {
	env := make(map[string]string)
	for _, s := range settings {
		if v := viper.GetString(s.Key); v != "" {
			env[EnvName(s.Key)] = v
		}
	}
	return env
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Set sets a config value and saves to disk.
func Set(key, value string) error {
	if !IsKnownKey(key) {
		return fmt.Errorf("unknown config key %q — run 'splittable config show' to list keys", key)
	}
	viper.Set(key, value)
	return SaveConfig()
}

// Get retrieves a config value.
func Get(key string) string {
	return viper.GetString(key)
}

// ResetConfig resets all config to defaults.
func ResetConfig() error {
	path := ConfigPath()
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not delete config: %w", err)
	}
	applyDefaults()
	return nil
}

func applyDefaults() {
	for _, s := range settings {
		viper.Set(s.Key, s.Default)
	}
}

// SaveConfig writes the current config to ~/.splittable/config.yaml.
func SaveConfig() error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(path); err != nil {
		return fmt.Errorf("could not write config: %w", err)
	}

	os.Chmod(path, 0600)
	return nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() string {
	if configFile != "" {
		return configFile
	}
	return filepath.Join(configDir(), "config.yaml")
}

// RulesPath returns the path to the watch rules file.
func RulesPath() string {
	return filepath.Join(configDir(), "watch.yaml")
}

// ShowConfig returns a formatted string of the current configuration.
func ShowConfig() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Config: %s\n\n", ConfigPath()))

	sb.WriteString("Split\n")
	sb.WriteString(fmt.Sprintf("  digit_limit:    %s\n", viper.GetString("digit_limit")))
	sb.WriteString(fmt.Sprintf("  csv.encoding:   %s\n", viper.GetString("csv.encoding")))
	sb.WriteString(fmt.Sprintf("  output.atomic:  %s\n", viper.GetString("output.atomic")))
	sb.WriteString("\n")

	sb.WriteString("Server\n")
	sb.WriteString(fmt.Sprintf("  addr:           %s\n", viper.GetString("server.addr")))
	sb.WriteString(fmt.Sprintf("  max_upload_mb:  %s\n", viper.GetString("server.max_upload_mb")))
	sb.WriteString("\n")

	sb.WriteString("Logging\n")
	sb.WriteString(fmt.Sprintf("  level:          %s\n", viper.GetString("log.level")))
	sb.WriteString(fmt.Sprintf("  format:         %s\n", viper.GetString("log.format")))
	sb.WriteString(fmt.Sprintf("  output.color:   %s\n", viper.GetString("output.color")))
	sb.WriteString("\n")

	sb.WriteString("Watch\n")
	sb.WriteString(fmt.Sprintf("  debounce_ms:    %s\n", viper.GetString("watch.debounce_ms")))
	sb.WriteString(fmt.Sprintf("  rules:          %s\n", RulesPath()))
	sb.WriteString("\n")

	return sb.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
