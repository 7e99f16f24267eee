package source

import (
	"os"
	"path/filepath"
	"strings"

	"tunnelgate/internal/config/schema"
	corelog "tunnelgate/internal/core/log"
)

// DotEnvSource loads .env files into the process environment
// The values are then picked up by EnvSource, so only prefixed keys take effect
type DotEnvSource struct {
	dirs   []string // directories to search for .env files
	appEnv string   // application environment (e.g., production, development)
}

// NewDotEnvSource creates a new DotEnvSource
func NewDotEnvSource(dirs []string, appEnv string) *DotEnvSource {
	return &DotEnvSource{
		dirs:   dirs,
		appEnv: appEnv,
	}
}

// Name returns the source name
func (s *DotEnvSource) Name() string {
	return "dotenv"
}

// Priority returns the source priority
func (s *DotEnvSource) Priority() int {
	return PriorityDotEnv
}

// LoadInto loads .env files; the config itself is filled by EnvSource
func (s *DotEnvSource) LoadInto(cfg *schema.Root) error {
	files := []string{
		".env",
		".env.local",
	}
	if s.appEnv != "" {
		files = append(files, ".env."+s.appEnv)
		files = append(files, ".env."+s.appEnv+".local")
	}

	for _, dir := range s.dirs {
		for _, file := range files {
			path := filepath.Join(dir, file)
			if err := loadEnvFile(path); err != nil {
				corelog.Debugf("Failed to load %s: %v", path, err)
			}
		}
	}
	return nil
}

// loadEnvFile loads a single .env file
// Variables already present in the environment are never overwritten
func loadEnvFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || line[0] == '#' {
			continue
		}

		key, value, ok := parseEnvLine(line)
		if !ok {
			continue
		}

		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		if err := os.Setenv(key, value); err != nil {
			corelog.Warnf("Failed to set env var %s from %s: %v", key, path, err)
		}
	}

	corelog.Debugf("Loaded env file: %s", path)
	return nil
}

// parseEnvLine parses a KEY=VALUE line, with optional export prefix and quotes
func parseEnvLine(line string) (key, value string, ok bool) {
	line = strings.TrimPrefix(line, "export ")
	key, value, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}

	key = strings.TrimSpace(key)
	value = strings.TrimSpace(value)
	if key == "" {
		return "", "", false
	}

	if len(value) >= 2 {
		if (value[0] == '"' && value[len(value)-1] == '"') ||
			(value[0] == '\'' && value[len(value)-1] == '\'') {
			value = value[1 : len(value)-1]
		}
	}
	return key, value, true
}

// FindDotEnvDirs finds directories that might contain .env files
func FindDotEnvDirs(configFile string) []string {
	var dirs []string

	if configFile != "" {
		if dir := filepath.Dir(configFile); dir != "" && dir != "." {
			dirs = append(dirs, dir)
		}
	}

	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}

	return dirs
}
