// Package flagx lets independent components pick their own flags out of a
// shared command line without tripping over each other's definitions.
package flagx

import (
	"flag"
	"os"
	"slices"
	"strings"
)

// ConfigFileEnv names the environment variable consulted when no -c/-config
// flag is present.
const ConfigFileEnv = "MEMESERVER_CONFIG"

// FilterArgs keeps only the flags listed in known, together with their
// values. "-flag value" and "-flag=value" forms are both recognised; a token
// starting with "-" is never consumed as a value.
func FilterArgs(args []string, known []string) []string {
	out := []string{}

	for i := 0; i < len(args); i++ {
		name, _, hasValue := strings.Cut(args[i], "=")
		if !strings.HasPrefix(name, "-") || !slices.Contains(known, name) {
			continue
		}
		out = append(out, args[i])
		if hasValue {
			continue
		}
		if next := i + 1; next < len(args) && !strings.HasPrefix(args[next], "-") {
			out = append(out, args[next])
			i = next
		}
	}

	return out
}

// ConfigFile returns the JSON config path given with -c or -config in args,
// falling back to $MEMESERVER_CONFIG. An empty result means no file.
func ConfigFile(args []string) string {
	var path string

	fs := flag.NewFlagSet("config-file", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config"}))

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	return path
}
