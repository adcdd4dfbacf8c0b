package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	prismerrors "github.com/ajitpratap0/prism/pkg/errors"
)

// Load loads a configuration from a YAML file over whatever values config
// already holds, so callers typically pass NewProfileConfig() to keep defaults
// for omitted keys.
func Load(filePath string, config interface{}) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: File path is controlled by caller
	if err != nil {
		return prismerrors.Wrap(err, prismerrors.KindConfig, "failed to read config file").
			WithDetail("path", filePath)
	}

	// Substitute environment variables
	content := substituteEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(content), config); err != nil {
		return prismerrors.Wrap(err, prismerrors.KindConfig, "failed to parse YAML").
			WithDetail("path", filePath)
	}

	return nil
}

// Save saves a configuration to a YAML file
func Save(filePath string, config interface{}) error {
	data, err := Marshal(config)
	if err != nil {
		return err
	}

	if err := os.WriteFile(filePath, data, 0644); err != nil { //nolint:gosec
		return prismerrors.Wrap(err, prismerrors.KindConfig, "failed to write config file").
			WithDetail("path", filePath)
	}

	return nil
}

// Marshal renders a configuration as YAML.
func Marshal(config interface{}) ([]byte, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return data, nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	var b strings.Builder
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		b.WriteString(content[:start])
		b.WriteString(os.Getenv(content[start+2 : end]))
		content = content[end+1:]
	}
	b.WriteString(content)
	return b.String()
}
