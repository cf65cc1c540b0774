package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"
)

// RunSetup runs the interactive setup wizard on in/out.
// If existing is non-nil, it is used as the default for each prompt (edit mode).
func RunSetup(in io.Reader, out io.Writer, existing *Config) (*Config, error) {
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

	// askChoice re-prompts until the answer is one of choices.
	askChoice := func(prompt, defaultVal string, choices ...string) (string, error) {
		label := prompt + " (" + strings.Join(choices, "/") + ")"
		for {
			ans, err := ask(label, defaultVal)
			if err != nil {
				return "", err
			}
			if oneOf(ans, choices...) {
				return strings.ToLower(ans), nil
			}
			fmt.Fprintf(out, "  please answer one of: %s\n", strings.Join(choices, ", "))
		}
	}

	cfg := Defaults()
	if existing != nil {
		cfg = Merge(existing, nil)
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "  ┌─────────────────────────────────┐")
	fmt.Fprintln(out, "  │         residue setup           │")
	fmt.Fprintln(out, "  └─────────────────────────────────┘")
	fmt.Fprintln(out)

	var err error

	cfg.DataDir, err = ask("  Session data directory (blank for default)", cfg.DataDir)
	if err != nil {
		return nil, err
	}

	for {
		raw, err := ask("  Flush interval", cfg.FlushInterval.String())
		if err != nil {
			return nil, err
		}
		d, perr := time.ParseDuration(raw)
		if perr == nil && d > 0 {
			cfg.FlushInterval = d
			break
		}
		fmt.Fprintln(out, "  please enter a positive duration such as 5s")
	}

	cfg.UninstallMode, err = askChoice("  Default uninstall mode", cfg.UninstallMode, "trash", "permanent")
	if err != nil {
		return nil, err
	}

	cfg.LogLevel, err = askChoice("  Log level", cfg.LogLevel, "debug", "info", "warn", "error")
	if err != nil {
		return nil, err
	}

	cfg.LogFormat, err = askChoice("  Log format", cfg.LogFormat, "text", "json")
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(out)
	return &cfg, nil
}
