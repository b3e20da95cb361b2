package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/goccy/go-json"

	"github.com/alnah/markforge"
	"github.com/alnah/markforge/internal/config"
	"github.com/alnah/markforge/internal/mathtex"
	"github.com/alnah/markforge/internal/sanitize"
	"github.com/alnah/markforge/internal/settings"
)

// doctorResult holds all diagnostic information.
type doctorResult struct {
	Status   string       `json:"status"` // "ready", "warnings", "errors"
	Chrome   chromeInfo   `json:"chrome"`
	Config   configInfo   `json:"config"`
	Math     []mathInfo   `json:"math"`
	Settings settingsInfo `json:"settings"`
	Env      envInfo      `json:"environment"`
	System   systemInfo   `json:"system"`
	Warnings []string     `json:"warnings,omitempty"`
	Errors   []string     `json:"errors,omitempty"`

	effective []byte // YAML of the effective config, for --verbose
}

// chromeInfo holds Chrome/Chromium detection results.
type chromeInfo struct {
	Found   bool   `json:"found"`
	Path    string `json:"path,omitempty"`
	Version string `json:"version,omitempty"`
	Sandbox bool   `json:"sandbox"`
}

// configInfo holds the config file lookup result.
type configInfo struct {
	Path      string `json:"path,omitempty"` // empty when running on defaults
	Valid     bool   `json:"valid"`
	Sanitizer string `json:"sanitizer"`
	Rules     int    `json:"sanitizer_rules"`
}

// mathInfo holds the result of typesetting a sample expression.
type mathInfo struct {
	Engine string `json:"engine"`
	OK     bool   `json:"ok"`
}

// settingsInfo holds the settings store location.
type settingsInfo struct {
	Path string `json:"path,omitempty"`
	Keys int    `json:"keys"`
}

// envInfo holds environment detection results.
type envInfo struct {
	OS            string `json:"os"`
	Arch          string `json:"arch"`
	Container     bool   `json:"container"`
	ContainerHint string `json:"container_hint,omitempty"`
	CI            bool   `json:"ci"`
	NoSandbox     string `json:"rod_no_sandbox"`
	BrowserBin    string `json:"rod_browser_bin"`
}

// systemInfo holds system check results.
type systemInfo struct {
	TempWritable bool `json:"temp_writable"`
}

// mathSample exercises inline and display math.
const mathSample = "$x^2$\n\n$$\\frac{a}{b}$$\n"

// runDoctorCmd reports whether the environment can render and export.
// Warnings alone keep the exit code at 0.
func runDoctorCmd(ctx context.Context, args []string, env *Environment) error {
	fs := newFlagSet("doctor", env.Stderr, printDoctorUsage)
	var (
		common     commonFlags
		jsonOutput bool
	)
	addCommonFlags(fs, &common)
	fs.BoolVar(&jsonOutput, "json", false, "print the report as JSON")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	result := runDoctor(ctx, common.config)

	if jsonOutput {
		enc := json.NewEncoder(env.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		printDoctorResult(env.Stdout, result, common.verbose)
	}

	if result.Status == "errors" {
		return fmt.Errorf("doctor found %d error(s)", len(result.Errors))
	}
	return nil
}

// runDoctor performs all diagnostic checks.
func runDoctor(ctx context.Context, configName string) *doctorResult {
	result := &doctorResult{
		Status: "ready",
		Env: envInfo{
			OS:         runtime.GOOS,
			Arch:       runtime.GOARCH,
			NoSandbox:  os.Getenv("ROD_NO_SANDBOX"),
			BrowserBin: os.Getenv("ROD_BROWSER_BIN"),
		},
	}

	checkChrome(result)
	cfg := checkConfig(result, configName)
	checkMath(ctx, result, cfg)
	checkSettings(result, cfg)
	checkEnvironment(result)
	checkSystem(result)

	if len(result.Errors) > 0 {
		result.Status = "errors"
	} else if len(result.Warnings) > 0 {
		result.Status = "warnings"
	}

	return result
}

// checkChrome detects Chrome/Chromium installation.
func checkChrome(result *doctorResult) {
	chromePath := result.Env.BrowserBin

	if chromePath == "" {
		var found bool
		chromePath, found = launcher.LookPath()
		if !found {
			result.Errors = append(result.Errors,
				"Chrome/Chromium not found. Install Chrome or set ROD_BROWSER_BIN (PDF export only)")
			return
		}
	}

	if _, err := os.Stat(chromePath); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Chrome not found at %s", chromePath))
		return
	}

	result.Chrome.Found = true
	result.Chrome.Path = chromePath

	out, err := exec.Command(chromePath, "--version").Output() // #nosec G204 -- detected browser binary
	if err == nil {
		result.Chrome.Version = strings.TrimSpace(string(out))
	} else {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("Could not get Chrome version: %v", err))
	}

	result.Chrome.Sandbox = result.Env.NoSandbox != "1"
}

// checkConfig loads and validates the config. It always returns a usable
// config, falling back to defaults on error.
func checkConfig(result *doctorResult, name string) *config.Config {
	var (
		cfg  *config.Config
		path string
		err  error
	)
	if name != "" {
		cfg, err = config.Load(name)
		path = name
	} else {
		cfg, path, err = config.Discover()
	}
	result.Config.Path = path
	result.Config.Rules = len(sanitize.Rules())
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("Config: %v", err))
		cfg = config.DefaultConfig()
		result.Config.Sanitizer = cfg.Render.Sanitizer
		return cfg
	}
	result.Config.Sanitizer = cfg.Render.Sanitizer

	result.Config.Valid = true
	if out, err := cfg.Marshal(); err == nil {
		result.effective = out
	}
	return cfg
}

// checkMath typesets a sample with every engine. A failure of the configured
// engine is an error; of the other one, a warning.
func checkMath(ctx context.Context, result *doctorResult, cfg *config.Config) {
	for _, engine := range []mathtex.Engine{mathtex.EngineKaTeX, mathtex.EngineMathML} {
		info := mathInfo{Engine: string(engine)}
		r, err := markforge.NewRenderer(markforge.WithMathEngine(string(engine)))
		if err == nil {
			var html string
			html, err = r.Render(ctx, mathSample)
			if err == nil && strings.Contains(html, "katex-error") {
				err = errors.New("sample produced an error marker")
			}
		}
		info.OK = err == nil
		result.Math = append(result.Math, info)
		if err == nil {
			continue
		}

		msg := fmt.Sprintf("Math engine %s: %v", engine, err)
		if strings.EqualFold(cfg.Render.MathEngine, string(engine)) {
			result.Errors = append(result.Errors, msg)
		} else {
			result.Warnings = append(result.Warnings, msg)
		}
	}
}

// checkSettings reports where editor settings live.
func checkSettings(result *doctorResult, cfg *config.Config) {
	path := cfg.Settings.Path
	if path == "" {
		var err error
		if path, err = settings.DefaultPath(); err != nil {
			result.Warnings = append(result.Warnings, fmt.Sprintf("Settings: %v", err))
			return
		}
	}
	result.Settings.Path = path
	result.Settings.Keys = len(settings.Open(path, nil).Keys())
}

// checkEnvironment detects container and CI environments.
func checkEnvironment(result *doctorResult) {
	result.Env.Container, result.Env.ContainerHint = isContainer()

	ciVars := []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL", "CIRCLECI"}
	for _, v := range ciVars {
		if os.Getenv(v) != "" {
			result.Env.CI = true
			break
		}
	}

	if (result.Env.Container || result.Env.CI) && result.Env.NoSandbox != "1" {
		result.Warnings = append(result.Warnings,
			"Container/CI detected but ROD_NO_SANDBOX not set. Set ROD_NO_SANDBOX=1")
	}
}

// isContainer detects if running in a container environment.
// Returns (isContainer, hint) where hint indicates which signal was detected.
func isContainer() (bool, string) {
	if os.Getenv("MARKFORGE_CONTAINER") == "1" {
		return true, "MARKFORGE_CONTAINER=1"
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true, "/.dockerenv"
	}
	if v := os.Getenv("container"); v != "" {
		return true, "container=" + v
	}
	if os.Getenv("KUBERNETES_SERVICE_HOST") != "" {
		return true, "KUBERNETES_SERVICE_HOST"
	}
	return false, ""
}

// checkSystem verifies the temp directory used for PDF staging is writable.
func checkSystem(result *doctorResult) {
	tmpDir := os.TempDir()
	testFile := filepath.Join(tmpDir, "markforge-doctor-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		result.Errors = append(result.Errors,
			fmt.Sprintf("Temp directory not writable: %s", tmpDir))
	} else {
		_ = os.Remove(testFile)
		result.System.TempWritable = true
	}
}

// printDoctorResult outputs human-readable diagnostic results.
func printDoctorResult(w io.Writer, r *doctorResult, verbose bool) {
	fmt.Fprintln(w, "markforge doctor")
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Chrome/Chromium")
	if r.Chrome.Found {
		fmt.Fprintf(w, "  [OK] Found at %s\n", r.Chrome.Path)
		if r.Chrome.Version != "" {
			fmt.Fprintf(w, "  [OK] Version: %s\n", r.Chrome.Version)
		}
		if r.Chrome.Sandbox {
			fmt.Fprintln(w, "  [OK] Sandbox: enabled")
		} else {
			fmt.Fprintln(w, "  [OK] Sandbox: disabled (ROD_NO_SANDBOX=1)")
		}
	} else {
		fmt.Fprintln(w, "  [ERROR] Not found")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Configuration")
	switch {
	case !r.Config.Valid:
		fmt.Fprintln(w, "  [ERROR] Invalid (see errors below)")
	case r.Config.Path == "":
		fmt.Fprintln(w, "  [OK] No config file, using defaults")
	default:
		fmt.Fprintf(w, "  [OK] Loaded %s\n", r.Config.Path)
	}
	if verbose && len(r.effective) > 0 {
		for _, line := range strings.Split(strings.TrimRight(string(r.effective), "\n"), "\n") {
			fmt.Fprintf(w, "       %s\n", line)
		}
	}
	if r.Config.Sanitizer != "" {
		fmt.Fprintf(w, "  [OK] Sanitizer: %s (%d blocklist rules)\n", r.Config.Sanitizer, r.Config.Rules)
	}
	if r.Settings.Path != "" {
		fmt.Fprintf(w, "  [OK] Settings: %s (%d keys)\n", r.Settings.Path, r.Settings.Keys)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Math")
	for _, m := range r.Math {
		if m.OK {
			fmt.Fprintf(w, "  [OK] %s\n", m.Engine)
		} else {
			fmt.Fprintf(w, "  [ERROR] %s\n", m.Engine)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Environment")
	fmt.Fprintf(w, "  [OK] Platform: %s/%s\n", r.Env.OS, r.Env.Arch)
	if r.Env.Container {
		fmt.Fprintf(w, "  [OK] Container: detected (%s)\n", r.Env.ContainerHint)
	}
	if r.Env.CI {
		fmt.Fprintln(w, "  [OK] CI: detected")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "System")
	if r.System.TempWritable {
		fmt.Fprintln(w, "  [OK] Temp directory: writable")
	} else {
		fmt.Fprintln(w, "  [ERROR] Temp directory: not writable")
	}
	fmt.Fprintln(w)

	if len(r.Warnings) > 0 {
		fmt.Fprintln(w, "Warnings:")
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  [WARN] %s\n", warn)
		}
		fmt.Fprintln(w)
	}

	if len(r.Errors) > 0 {
		fmt.Fprintln(w, "Errors:")
		for _, err := range r.Errors {
			fmt.Fprintf(w, "  [ERROR] %s\n", err)
		}
		fmt.Fprintln(w)
	}

	switch r.Status {
	case "ready":
		fmt.Fprintln(w, "Status: Ready")
	case "warnings":
		fmt.Fprintln(w, "Status: Ready with warnings")
	case "errors":
		fmt.Fprintln(w, "Status: Not ready (see errors above)")
	}
}
