package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to path.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to curatordash! Let's point it at your curator backend.")
	fmt.Println()

	defaults := DefaultConfig()

	// 1. Backend URL.
	backendPrompt := promptui.Prompt{
		Label:    "Backend base URL",
		Default:  defaults.BackendURL,
		Validate: validateURL,
	}
	backendURL, err := backendPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("backend url: %w", err)
	}

	// 2. Listen port.
	portPrompt := promptui.Prompt{
		Label:    "Dashboard port",
		Default:  strconv.Itoa(defaults.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	port, _ := strconv.Atoi(portStr)

	// 3. Poll interval.
	pollPrompt := promptui.Select{
		Label:     "Auto-refresh interval for curators and activities",
		Items:     []string{"15s", "30s", "1m", "5m"},
		CursorPos: 1,
	}
	_, pollStr, err := pollPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("poll interval: %w", err)
	}
	pollInterval, _ := time.ParseDuration(pollStr)

	// 4. Log format.
	formatPrompt := promptui.Select{
		Label: "Log format",
		Items: []string{string(LogFormatConsole), string(LogFormatJSON)},
	}
	_, formatStr, err := formatPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("log format: %w", err)
	}

	key, err := generateCSRFKey()
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	cfg.BackendURL = backendURL
	cfg.Port = port
	cfg.PollInterval = pollInterval
	cfg.LogFormat = LogFormat(formatStr)
	cfg.CSRFKey = key

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validateURL(s string) error {
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("not a number")
	}
	if n <= 0 || n > 65535 {
		return fmt.Errorf("port out of range")
	}
	return nil
}

// generateCSRFKey returns a random 32-byte key, hex encoded.
func generateCSRFKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating csrf key: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
