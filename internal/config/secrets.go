package config

import (
	"fmt"
	"os"
	"strings"
)

// readSecret returns $name, or else the contents of the file named by
// $name_FILE with surrounding whitespace trimmed. Both unset yields "".
func readSecret(getenv func(string) string, name string) (string, error) {
	if v := getenv(name); v != "" {
		return v, nil
	}
	file := getenv(name + "_FILE")
	if file == "" {
		return "", nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read %s_FILE: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// LoadSecrets applies VALKEY_PASSWORD (or VALKEY_PASSWORD_FILE) over the
// configured cache password.
func LoadSecrets(config *Config) error {
	pw, err := readSecret(os.Getenv, "VALKEY_PASSWORD")
	if err != nil {
		return err
	}
	if pw != "" {
		config.Cache.Password = pw
	}
	return nil
}
