// Command cascade-tool builds, queries, and inspects padded Bloom filter
// cascades from the command line. Each subcommand parses its own flag set
// in the style of the teacher's single-purpose cmd/ binaries — there is no
// cli framework here, just the standard library's flag package.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/flhps/crset-cascade-go/pkg/cascade"
	"github.com/flhps/crset-cascade-go/pkg/cascadeconfig"
	"github.com/flhps/crset-cascade-go/pkg/cascadelog"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	logger := cascadelog.New(cascadelog.DefaultConfig())

	var err error
	switch os.Args[1] {
	case "build":
		err = runBuild(os.Args[2:], logger)
	case "query":
		err = runQuery(os.Args[2:], logger)
	case "inspect":
		err = runInspect(os.Args[2:], logger)
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		logger.Error(err.Error())
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: cascade-tool <build|query|inspect> [flags]")
}

// identifierFile is the JSON shape -valid/-revoked fixtures are read from:
// a flat array of hex identifier strings.
type identifierFile []string

func readIdentifierSet(path string) (cascade.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var ids identifierFile
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("failed to parse %s as a JSON array of ids: %w", path, err)
	}
	return cascade.NewSet(ids...), nil
}

func readHexFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

// applyLoggingConfig reconfigures logger in place from a loaded
// cascadeconfig.LoggingConfig, the same level/output settings cascade-tool
// would otherwise only take from its hardcoded default.
func applyLoggingConfig(logger *cascadelog.Logger, cfg cascadeconfig.LoggingConfig) error {
	level, err := cascadelog.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid logging config: %w", err)
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Output) {
	case "file":
		out, err := cascadelog.CreateFileOutput(cfg.File)
		if err != nil {
			return err
		}
		logger.SetOutput(out)
	case "both":
		out, err := cascadelog.CreateCombinedOutput(cfg.File)
		if err != nil {
			return err
		}
		logger.SetOutput(out)
	}
	return nil
}
