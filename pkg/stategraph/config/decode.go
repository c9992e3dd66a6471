package config

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Decode maps the configuration onto out, a pointer to a struct with
// `mapstructure` tags. Input is weakly typed, so the strings produced by
// FromEnv decode into ints, bools and durations ("30s"). Comma-separated
// strings decode into slices.
//
// Example:
//
//	var s struct {
//	    MaxSteps int           `mapstructure:"max_steps"`
//	    Timeout  time.Duration `mapstructure:"timeout"`
//	}
//	err := cfg.Decode(&s)
func (c Config) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}
	if err := dec.Decode(c.data); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}
