package arbor

import (
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// cliArgsOverride lets tests substitute process arguments deterministically.
var cliArgsOverride []string

func cliArgs() []string {
	if cliArgsOverride != nil {
		return cliArgsOverride
	}
	if len(os.Args) <= 1 {
		return nil
	}
	return os.Args[1:]
}

// detectCLIVerbosity implements spec.md §4 command-line verbosity
// detection: scan process arguments for tokens matching mapping keys,
// last match wins; a repeated short "-v" flag maps to the mapping entry
// named after its repeat count ("vvv" for "-vvv" or "-v -v -v").
func detectCLIVerbosity(mapping map[string]Level) (Level, bool) {
	if len(mapping) == 0 {
		return 0, false
	}
	args := cliArgs()

	fs := pflag.NewFlagSet("arbor-verbosity", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	vCount := fs.CountP("v", "v", "increase verbosity")
	_ = fs.Parse(args)

	var found Level
	matched := false

	if *vCount > 0 {
		key := strings.Repeat("v", *vCount)
		if lvl, ok := mapping[key]; ok {
			found, matched = lvl, true
		}
	}

	for _, arg := range args {
		token := strings.TrimLeft(arg, "-")
		if token == arg {
			continue
		}
		if eq := strings.IndexByte(token, '='); eq >= 0 {
			token = token[eq+1:]
		}
		if lvl, ok := mapping[token]; ok {
			found, matched = lvl, true
		}
	}

	return found, matched
}
