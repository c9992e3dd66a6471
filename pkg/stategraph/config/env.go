package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// FromEnv collects variables named <prefix>_<KEY> from the process
// environment. KEY is lowercased; a double underscore nests:
//
//	STATEGRAPH_MAX_STEPS=50          -> max_steps: "50"
//	STATEGRAPH_TRACE__SINK=memory    -> trace: {sink: "memory"}
//
// Values stay strings; Decode converts them to the target field types.
func FromEnv(prefix string) Config {
	return FromEnviron(prefix, os.Environ())
}

// FromEnviron is FromEnv over an explicit KEY=VALUE list.
func FromEnviron(prefix string, environ []string) Config {
	prefix = strings.TrimSuffix(strings.ToUpper(prefix), "_") + "_"
	data := make(map[string]any)
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		key := strings.ToLower(strings.TrimPrefix(name, prefix))
		if key == "" {
			continue
		}
		setPath(data, strings.Split(key, "__"), value)
	}
	return New(data)
}

func setPath(m map[string]any, path []string, value string) {
	for _, part := range path[:len(path)-1] {
		next, ok := m[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[part] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}

// LoadDotEnv loads KEY=VALUE files into the process environment without
// overriding variables that are already set. With no paths it reads ".env".
// Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if !Exists(p) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}
