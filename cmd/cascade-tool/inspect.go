package main

import (
	"flag"
	"fmt"

	"github.com/flhps/crset-cascade-go/pkg/cascade"
	"github.com/flhps/crset-cascade-go/pkg/cascadelog"
)

func runInspect(args []string, logger *cascadelog.Logger) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	inPath := fs.String("in", "", "path to a serialized cascade")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *inPath == "" {
		return fmt.Errorf("inspect requires -in")
	}

	wireHex, err := readHexFile(*inPath)
	if err != nil {
		return err
	}

	c, err := cascade.FromHex(wireHex)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", *inPath, err)
	}

	fmt.Printf("salt:  %s\n", c.Salt())
	fmt.Printf("depth: %d\n", c.Depth())
	for i, layer := range c.Layers() {
		fmt.Printf("  layer %d: m=%d k=%d\n", i+1, layer.M(), layer.K())
	}
	return nil
}
