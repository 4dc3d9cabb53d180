package appconfig

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
)

// loadFile overlays the TOML file at path onto cfg. Keys absent from the file
// keep their current values; unknown keys are an error.
func loadFile(cfg *Config, path string) error {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("decode config file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("config file %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return nil
}
