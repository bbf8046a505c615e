package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/flhps/crset-cascade-go/pkg/cascade"
	"github.com/flhps/crset-cascade-go/pkg/cascadeconfig"
	"github.com/flhps/crset-cascade-go/pkg/cascadelog"
)

func runBuild(args []string, logger *cascadelog.Logger) error {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", "", "path to a cascade-tool config file (see cascadeconfig); defaults used when omitted")
	validPath := fs.String("valid", "", "path to a JSON array of valid identifiers")
	revokedPath := fs.String("revoked", "", "path to a JSON array of revoked identifiers")
	rHat := fs.Int("rhat", 0, "padding target (see FromSets); defaults to the config file's cascade.r_hat when 0")
	maxLayers := fs.Int("maxlayers", 0, "layering loop safety cap; defaults to the config file's cascade.max_layers when 0")
	outPath := fs.String("out", "", "path to write the serialized cascade to")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := cascadeconfig.LoadConfig(*configPath)
	if err != nil {
		return err
	}
	if err := applyLoggingConfig(logger, cfg.Logging); err != nil {
		return err
	}
	if *rHat <= 0 {
		*rHat = cfg.Cascade.RHat
	}
	effectiveMaxLayers := cfg.Cascade.MaxLayers
	if *maxLayers > 0 {
		effectiveMaxLayers = *maxLayers
	}

	if *validPath == "" || *revokedPath == "" || *outPath == "" {
		return fmt.Errorf("build requires -valid, -revoked, and -out")
	}

	valid, err := readIdentifierSet(*validPath)
	if err != nil {
		return err
	}
	revoked, err := readIdentifierSet(*revokedPath)
	if err != nil {
		return err
	}

	c, err := cascade.FromSets(valid, revoked, *rHat,
		cascade.WithLogger(logger), cascade.WithMaxLayers(effectiveMaxLayers))
	if err != nil {
		return fmt.Errorf("failed to build cascade: %w", err)
	}

	if err := os.WriteFile(*outPath, []byte(c.ToHex()), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", *outPath, err)
	}

	logger.Info("cascade built", map[string]interface{}{
		"depth": c.Depth(), "valid": len(valid), "revoked": len(revoked), "out": *outPath,
	})
	return nil
}
