/*
Package config loads and reads layered configuration for stategraph tools.

# Reading values

Config wraps nested map[string]any data with typed accessors that return a
default on a missing key or a type mismatch. Keys may be dotted paths:

	cfg := config.New(map[string]any{
	    "max_steps": 50,
	    "trace": map[string]any{"sink": "sqlite:trace.db"},
	})

	cfg.Int("max_steps", 100)          // 50
	cfg.String("trace.sink", "memory") // "sqlite:trace.db"
	cfg.Duration("timeout", 30*time.Second)

# Sources

FromFile reads YAML or JSON by extension. FromEnv reads prefixed environment
variables, with "__" separating nested keys. LoadDotEnv fills the process
environment from .env files first, so secrets kept there reach FromEnv:

	_ = config.LoadDotEnv()
	cfg, err := config.Load("stategraph.yaml", "STATEGRAPH")

Load layers the file under the environment. Merge layers any two Configs.

# Decoding

Decode maps a Config onto a struct with mapstructure tags, converting the
string values that come from the environment:

	var s Settings
	if err := cfg.Decode(&s); err != nil {
	    return err
	}

# Thread Safety

Config is safe for concurrent reads. Merge returns a new Config and never
modifies either input.
*/
package config
