package util

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable aceman reads its config from.
const EnvPrefix = "ACEMAN"

// EnvKeyReplacer maps nested config keys to environment variable names.
var EnvKeyReplacer = strings.NewReplacer(".", "_")

// EnvName is the environment variable that sets the config key.
func EnvName(key string) string {
	return strings.ToUpper(EnvPrefix + "_" + EnvKeyReplacer.Replace(key))
}

// FlagBindings maps config keys to the flag names that set them.
type FlagBindings map[string]string

// BindPFlags binds the flags of fs to their config keys in v and adds the
// environment variable of each key to the flag usage.
func BindPFlags(v *viper.Viper, fs *pflag.FlagSet, bindings FlagBindings) {
	keys := make([]string, 0, len(bindings))
	for key := range bindings {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		f := fs.Lookup(bindings[key])
		if f == nil {
			fmt.Fprintf(os.Stderr, "cannot bind %s: no flag named %s\n", key, bindings[key])
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			fmt.Fprintf(os.Stderr, "viper failed binding pflag: %v with error: %v \n", key, err)
			continue
		}
		f.Usage += fmt.Sprintf(` (env "%s")`, EnvName(key))
	}
}
