package lib

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/warelink/wpmsync/models"
)

// PasswordEnvVar overrides any password configured in the config JSON, so
// the credential can live in the environment (or a .env file) instead of on
// disk next to the endpoint list.
const PasswordEnvVar = "WPMS_PASSWORD"

// ParseConfigJSON reads and parses the sync config file.
func ParseConfigJSON(filePath string) (models.SyncConfig, error) {
	var cfg models.SyncConfig

	raw, err := os.ReadFile(filePath)
	if err != nil {
		return cfg, fmt.Errorf("error reading config file: %w", err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshalling config file: %w", err)
	}

	return cfg, nil
}

// LoadPassword resolves the plaintext password from its configured source:
// the environment first, then a password file, then the config value. The
// password is held in memory only for the duration of the login call.
func LoadPassword(creds models.Credentials) (string, error) {
	if password := os.Getenv(PasswordEnvVar); password != "" {
		return password, nil
	}

	if creds.PasswordFile != "" {
		raw, err := os.ReadFile(creds.PasswordFile)
		if err != nil {
			return "", fmt.Errorf("error reading password file: %w", err)
		}
		password := strings.TrimSpace(string(raw))
		if password == "" {
			return "", fmt.Errorf("password file %s is empty", creds.PasswordFile)
		}
		return password, nil
	}

	if creds.Password == "" {
		return "", fmt.Errorf("no usable password: set %s, credentials.password_file or credentials.password", PasswordEnvVar)
	}
	return creds.Password, nil
}
