/*
 * nodeengine
 *
 * Package config holds the engine's ambient tunables, in the same
 * map-plus-typed-accessor shape the rest of the stack uses for its own
 * configuration: known keys are constants, defaults live in a map, and
 * a loaded file's values are merged over the defaults. Unknown or
 * malformed values fall back to defaults; config never causes a fatal
 * error (§6: "Any unknown values fall back to defaults; never fatal").
 */
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"devt.de/krotik/common/fileutil"
)

/*
Known configuration keys.
*/
const (
	TickIntervalMillis     = "TickIntervalMillis"
	MaxStabilizationRounds = "MaxStabilizationRounds"
	EventLogCapacity       = "EventLogCapacity"
	GoldenPort             = "GoldenPort"
	Headless               = "Headless"
)

/*
DefaultConfigFile is the default config file name.
*/
var DefaultConfigFile = "nodeengine.config.json"

/*
DefaultConfig is the default configuration, per §4.5/§6/invariant 8.
*/
var DefaultConfig = map[string]interface{}{
	TickIntervalMillis:     16,
	MaxStabilizationRounds: 8,
	EventLogCapacity:       4096,
	GoldenPort:             9010,
	Headless:               false,
}

/*
Config is the actual configuration in use, populated by LoadConfigFile
or LoadDefaultConfig.
*/
var Config map[string]interface{}

/*
LoadConfigFile loads configfile, creating it with the defaults if it
does not yet exist. Malformed or missing values fall back silently to
DefaultConfig's entry for that key.
*/
func LoadConfigFile(configfile string) error {
	var err error
	Config, err = fileutil.LoadConfig(configfile, DefaultConfig)
	return err
}

/*
LoadDefaultConfig loads the built-in defaults without touching disk.
*/
func LoadDefaultConfig() {
	data := make(map[string]interface{}, len(DefaultConfig))
	for k, v := range DefaultConfig {
		data[k] = v
	}
	Config = data
}

/*
LoadEnv overlays GOLDEN_PORT and --headless-style environment/CLI
conventions onto an already-loaded Config, matching §6's "Configuration
(environment)" section. Called after LoadConfigFile/LoadDefaultConfig.
*/
func LoadEnv(args []string) {
	if Config == nil {
		LoadDefaultConfig()
	}

	if v := os.Getenv("GOLDEN_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			Config[GoldenPort] = port
		}
	}

	for _, a := range args {
		if a == "--headless" {
			Config[Headless] = true
		}
	}
}

/*
Str reads a config value as a string.
*/
func Str(key string) string {
	return fmt.Sprint(Config[key])
}

/*
Int reads a config value as an int. Falls back to DefaultConfig's value
for key (or 0) if the stored value cannot be parsed as an integer.
*/
func Int(key string) int {
	v, err := strconv.ParseInt(fmt.Sprint(Config[key]), 10, 64)
	if err != nil {
		if d, ok := DefaultConfig[key]; ok {
			if dv, err2 := strconv.ParseInt(fmt.Sprint(d), 10, 64); err2 == nil {
				return int(dv)
			}
		}
		return 0
	}
	return int(v)
}

/*
Bool reads a config value as a boolean. Falls back to DefaultConfig's
value for key (or false) if the stored value cannot be parsed as a
boolean.
*/
func Bool(key string) bool {
	v, err := strconv.ParseBool(fmt.Sprint(Config[key]))
	if err != nil {
		if d, ok := DefaultConfig[key]; ok {
			if dv, err2 := strconv.ParseBool(fmt.Sprint(d)); err2 == nil {
				return dv
			}
		}
		return false
	}
	return v
}

/*
MarshalIndent renders the current configuration as indented JSON, used
when a config file needs (re-)writing with defaults.
*/
func MarshalIndent() ([]byte, error) {
	return json.MarshalIndent(Config, "", "  ")
}
