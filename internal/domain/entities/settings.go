package entities

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Settings is the top-level configuration: the list of repositories under
// management and, per repository, which managers run against it.
type Settings struct {
	Repositories []RepositoryEntry `yaml:"repositories"`
}

// RepositoryEntry configures one managed repository.
type RepositoryEntry struct {
	Slug        string          `yaml:"slug"`         // "owner/name"
	ServiceType string          `yaml:"service_type"` // "github" (default) or "gitlab"
	ServiceURL  string          `yaml:"service_url"`  // Self-hosted instance base URL
	Token       string          `yaml:"token"`        // Inline, ${ENV_VAR}, or file path
	Branch      string          `yaml:"branch"`       // Default branch, "master" when empty
	TLSVerify   *bool           `yaml:"tls_verify"`   // nil means true
	Managers    []ManagerEntry  `yaml:"managers"`
}

// ManagerEntry selects one manager and its per-repository options.
type ManagerEntry struct {
	Name   string   `yaml:"name"`
	Labels []string `yaml:"labels"`
}

// envVarPattern matches ${VAR_NAME} placeholders.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)}`)

var knownServiceTypes = map[string]bool{
	"github": true,
	"gitlab": true,
}

// NewSettings reads and parses a configuration file, expanding environment
// variables and resolving token file paths.
func NewSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %q: %w", path, err)
	}

	var settings Settings
	if unmarshalErr := yaml.Unmarshal(data, &settings); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", unmarshalErr)
	}

	for i := range settings.Repositories {
		settings.Repositories[i].Token = resolveToken(settings.Repositories[i].Token)
		if settings.Repositories[i].ServiceType == "" {
			settings.Repositories[i].ServiceType = "github"
		}
		if settings.Repositories[i].Branch == "" {
			settings.Repositories[i].Branch = "master"
		}
	}

	if validateErr := validate(&settings); validateErr != nil {
		return nil, validateErr
	}

	return &settings, nil
}

// FindConfigFile searches for a configuration file in standard locations.
// Returns the path to the first file found or an error if none is found.
func FindConfigFile() (string, error) {
	if env := os.Getenv("KEBECHET_CONFIG"); env != "" {
		return env, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = ""
	}

	locations := []string{
		".",
		".config",
	}
	if homeDir != "" {
		locations = append(
			locations,
			homeDir,
			filepath.Join(homeDir, ".config", "kebechet"),
		)
	}

	patterns := []string{
		".kebechet.yaml",
		".kebechet.yml",
		"kebechet.yaml",
		"kebechet.yml",
	}

	for _, loc := range locations {
		for _, pat := range patterns {
			p := filepath.Join(loc, pat)
			if _, statErr := os.Stat(p); statErr == nil {
				return p, nil
			}
		}
	}

	return "", errors.New("config file not found in default locations")
}

// VerifyTLS reports whether TLS certificates should be verified for this
// entry; unset means yes.
func (r RepositoryEntry) VerifyTLS() bool {
	return r.TLSVerify == nil || *r.TLSVerify
}

// resolveToken expands environment variable references (${VAR}) and, if the
// resulting string is a path to an existing file, reads the token from the file.
func resolveToken(raw string) string {
	if raw == "" {
		return raw
	}

	resolved := envVarPattern.ReplaceAllStringFunc(raw, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if val := os.Getenv(varName); val != "" {
			return val
		}
		logger.Warnf("Environment variable %q is not set", varName)
		return ""
	})

	if _, statErr := os.Stat(resolved); statErr == nil {
		data, readErr := os.ReadFile(resolved)
		if readErr != nil {
			logger.Warnf("Failed to read token file %q: %v", resolved, readErr)
			return resolved
		}
		logger.Infof("Read token from file %q", resolved)
		return strings.TrimSpace(string(data))
	}

	return resolved
}

// validate checks for required configuration values.
func validate(settings *Settings) error {
	if len(settings.Repositories) == 0 {
		return errors.New("at least one repository must be configured")
	}

	for i, r := range settings.Repositories {
		if r.Slug == "" {
			return fmt.Errorf("repositories[%d].slug is required", i)
		}
		if !knownServiceTypes[r.ServiceType] {
			return fmt.Errorf(
				"repositories[%d].service_type %q is not supported (github, gitlab)",
				i, r.ServiceType,
			)
		}
		if r.Token == "" {
			return fmt.Errorf(
				"repositories[%d].token is required (set inline, via ${ENV_VAR}, or as file path)",
				i,
			)
		}
		if len(r.Managers) == 0 {
			return fmt.Errorf(
				"repositories[%d].managers must have at least one entry",
				i,
			)
		}
	}

	return nil
}
