// Package profile manages the user's persistent focustrail profile.
// The profile is stored at ~/.config/focustrail/profile.json and is created
// once via the interactive setup flow, then referenced on every command.
package profile

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DefaultFocusDuration is the focus block length offered by setup.
const DefaultFocusDuration = 25 * time.Minute

// Profile holds user-level preferences set during first-run setup.
type Profile struct {
	Name          string `json:"name"`
	DefaultGoal   string `json:"default_goal"`   // used when focus runs without --goal
	FocusDuration string `json:"focus_duration"` // e.g. "25m"
	Notifications bool   `json:"notifications"`  // desktop notifications for breaks and alerts
}

// Focus returns the configured focus block length, or DefaultFocusDuration.
func (p *Profile) Focus() time.Duration {
	if p == nil {
		return DefaultFocusDuration
	}
	d, err := time.ParseDuration(p.FocusDuration)
	if err != nil || d <= 0 {
		return DefaultFocusDuration
	}
	return d
}

// profilePath returns the path to the profile file.
func profilePath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "profile.json"), nil
}

// ConfigDir returns the focustrail config directory.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "focustrail"), nil
}

// Exists reports whether a profile file is present on disk.
func Exists() bool {
	p, err := profilePath()
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Load reads the profile from disk. Returns an error if the file is missing or malformed.
func Load() (*Profile, error) {
	p, err := profilePath()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("profile not found, run 'focustrail setup' to configure: %w", err)
	}
	var prof Profile
	if err := json.Unmarshal(data, &prof); err != nil {
		return nil, fmt.Errorf("malformed profile at %s: %w", p, err)
	}
	return &prof, nil
}

// Save writes the profile to disk, creating the config directory if needed.
func Save(prof *Profile) error {
	p, err := profilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(prof, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

// RunSetup runs the interactive setup wizard on in/out and returns the
// resulting profile. If existing is non-nil, it is used as the default for
// each prompt (edit mode).
func RunSetup(existing *Profile, in io.Reader, out io.Writer) (*Profile, error) {
	r := bufio.NewReader(in)

	ask := func(prompt, defaultVal string) (string, error) {
		if defaultVal != "" {
			fmt.Fprintf(out, "%s [%s]: ", prompt, defaultVal)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		line, err := r.ReadString('\n')
		if err != nil && !(err == io.EOF && line != "") {
			return "", err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return defaultVal, nil
		}
		return line, nil
	}

	askBool := func(prompt string, defaultVal bool) (bool, error) {
		def := "n"
		if defaultVal {
			def = "y"
		}
		ans, err := ask(prompt+" (y/n)", def)
		if err != nil {
			return false, err
		}
		return strings.ToLower(ans) == "y" || strings.ToLower(ans) == "yes", nil
	}

	prof := &Profile{
		FocusDuration: DefaultFocusDuration.String(),
		Notifications: true,
	}
	if existing != nil {
		*prof = *existing
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌──────────────────────────────────┐")
	fmt.Fprintln(out, "  │   focustrail — first-time setup  │")
	fmt.Fprintln(out, "  └──────────────────────────────────┘")
	fmt.Fprintln(out)

	var err error

	prof.Name, err = ask("  Your name (shown in reports)", prof.Name)
	if err != nil {
		return nil, err
	}

	prof.DefaultGoal, err = ask("  Default focus goal (optional)", prof.DefaultGoal)
	if err != nil {
		return nil, err
	}

	for {
		d, err := ask("  Default focus block length", prof.FocusDuration)
		if err != nil {
			return nil, err
		}
		if parsed, perr := time.ParseDuration(d); perr == nil && parsed > 0 {
			prof.FocusDuration = parsed.String()
			break
		}
		fmt.Fprintf(out, "  %q is not a duration, try e.g. 25m or 1h\n", d)
	}

	prof.Notifications, err = askBool("  Desktop notifications for breaks and off-goal alerts", prof.Notifications)
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	return prof, nil
}
