// Package doctor provides the "splittable doctor" command for checking the setup.
package doctor

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yangming0322/splittable/internal/config"
	"github.com/yangming0322/splittable/internal/output"
	"github.com/yangming0322/splittable/internal/watch"
)

// Check represents a single health check result.
type Check struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Message string `json:"message"`
}

// NewCommand creates the "doctor" command.
func NewCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, watch rules and environment",
		Long:  "Run diagnostic checks to verify splittable is properly configured.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			checks := runChecks(config.Dir(), cfg, err)

			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				return json.NewEncoder(os.Stdout).Encode(checks)
			}

			green := color.New(color.FgGreen).SprintFunc()
			yellow := color.New(color.FgYellow).SprintFunc()
			red := color.New(color.FgRed).SprintFunc()

			fmt.Println("splittable doctor")
			fmt.Println("=================")
			fmt.Println()

			okCount, warnCount, errCount := 0, 0, 0
			for _, c := range checks {
				var icon string
				switch c.Status {
				case "ok":
					icon = green("✓")
					okCount++
				case "warning":
					icon = yellow("!")
					warnCount++
				case "error":
					icon = red("✗")
					errCount++
				}
				fmt.Printf("  %s %s: %s\n", icon, c.Name, c.Message)
			}

			fmt.Println()
			fmt.Printf("  %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

			if errCount > 0 {
				return fmt.Errorf("%w: %d check(s) failed", output.ErrUsage, errCount)
			}
			return nil
		},
	}
}

func runChecks(dir string, cfg *config.Config, loadErr error) []Check {
	var checks []Check

	checks = append(checks, Check{
		Name:    "Go Runtime",
		Status:  "ok",
		Message: fmt.Sprintf("%s %s/%s", runtime.Version(), runtime.GOOS, runtime.GOARCH),
	})

	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		checks = append(checks, Check{Name: "Config Directory", Status: "ok", Message: dir})
	} else {
		checks = append(checks, Check{
			Name:    "Config Directory",
			Status:  "warning",
			Message: fmt.Sprintf("%s not found — run 'splittable config init'", dir),
		})
	}

	configFile := filepath.Join(dir, "config.yaml")
	if loadErr != nil {
		checks = append(checks, Check{Name: "Config File", Status: "error", Message: loadErr.Error()})
	} else if _, err := os.Stat(configFile); err == nil {
		checks = append(checks, Check{Name: "Config File", Status: "ok", Message: configFile})
	} else {
		checks = append(checks, Check{
			Name:    "Config File",
			Status:  "warning",
			Message: "Not found, using defaults — run 'splittable config init'",
		})
	}

	checks = append(checks, settingsCheck())
	checks = append(checks, rulesCheck(filepath.Join(dir, "watch.yaml")))
	checks = append(checks, tempCheck())
	if cfg != nil {
		checks = append(checks, addrCheck(cfg.Server.Addr))
	}

	if pager := os.Getenv("PAGER"); pager != "" {
		checks = append(checks, Check{Name: "Pager", Status: "ok", Message: pager})
	} else if _, err := exec.LookPath("less"); err == nil {
		checks = append(checks, Check{Name: "Pager", Status: "ok", Message: "less"})
	} else {
		checks = append(checks, Check{
			Name:    "Pager",
			Status:  "warning",
			Message: "less not found and PAGER unset — long previews print directly",
		})
	}

	return checks
}

func settingsCheck() Check {
	errs := 0
	var first string
	for _, issue := range config.Validate() {
		if issue.Severity == "error" {
			if errs == 0 {
				first = issue.Message
			}
			errs++
		}
	}
	if errs > 0 {
		return Check{
			Name:    "Settings",
			Status:  "error",
			Message: fmt.Sprintf("%d invalid setting(s), first: %s — run 'splittable config validate'", errs, first),
		}
	}
	return Check{Name: "Settings", Status: "ok", Message: "valid"}
}

func rulesCheck(path string) Check {
	wc, err := watch.LoadConfig(path)
	if os.IsNotExist(err) {
		return Check{Name: "Watch Rules", Status: "warning", Message: "No watch.yaml — 'watch start' needs --boundary and --group"}
	}
	if err != nil {
		return Check{Name: "Watch Rules", Status: "error", Message: err.Error()}
	}
	if err := watch.ValidateRules(wc.Rules); err != nil {
		return Check{Name: "Watch Rules", Status: "error", Message: err.Error()}
	}
	return Check{Name: "Watch Rules", Status: "ok", Message: fmt.Sprintf("%d rule(s) in %s", len(wc.Rules), path)}
}

func tempCheck() Check {
	f, err := os.CreateTemp("", "splittable-doctor-*")
	if err != nil {
		return Check{Name: "Temp Directory", Status: "error", Message: fmt.Sprintf("%s is not writable: %v", os.TempDir(), err)}
	}
	name := f.Name()
	f.Close()
	os.Remove(name)
	return Check{Name: "Temp Directory", Status: "ok", Message: os.TempDir()}
}

func addrCheck(addr string) Check {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return Check{Name: "Server Address", Status: "warning", Message: fmt.Sprintf("%s is not available: %v", addr, err)}
	}
	ln.Close()
	return Check{Name: "Server Address", Status: "ok", Message: addr + " is free"}
}
