package main

import (
	"flag"
	"fmt"

	"github.com/flhps/crset-cascade-go/pkg/cascade"
	"github.com/flhps/crset-cascade-go/pkg/cascadelog"
)

func runQuery(args []string, logger *cascadelog.Logger) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	inPath := fs.String("in", "", "path to a serialized cascade")
	id := fs.String("id", "", "hex identifier to query")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *inPath == "" || *id == "" {
		return fmt.Errorf("query requires -in and -id")
	}

	wireHex, err := readHexFile(*inPath)
	if err != nil {
		return err
	}

	c, err := cascade.FromHex(wireHex)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", *inPath, err)
	}

	fmt.Println(c.Has(*id))
	return nil
}
