// mapconv validates map files and rewrites them in explicit form: every
// wall, deposit and agent of both teams spelled out, ids fixed, mirror mode
// resolved.
//
// Usage:
//
//	go run ./cmd/mapconv maps/twin_lakes.yaml            # explicit YAML to stdout
//	go run ./cmd/mapconv -o out/twin_lakes.yaml maps/twin_lakes.yaml
//	go run ./cmd/mapconv -check maps/*.yaml               # validate only
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gridclash/arena/internal/data"
	"github.com/gridclash/arena/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "mapconv: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	out := flag.String("o", "", "write the explicit map here instead of stdout")
	check := flag.Bool("check", false, "only validate the given maps")
	flag.Parse()
	if flag.NArg() == 0 {
		return fmt.Errorf("no map files given")
	}
	rules := world.DefaultRules()

	if *check {
		failed := 0
		for _, path := range flag.Args() {
			d, err := data.LoadMap(path, rules)
			if err != nil {
				fmt.Printf("FAIL %s: %v\n", path, err)
				failed++
				continue
			}
			fmt.Printf("ok   %s (%s %dx%d, %s, %d agents)\n", path, d.Name, d.Width, d.Height, d.Symmetry, len(d.Agents))
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d maps invalid", failed, flag.NArg())
		}
		return nil
	}

	if flag.NArg() != 1 {
		return fmt.Errorf("convert takes exactly one map, got %d", flag.NArg())
	}
	d, err := data.LoadMap(flag.Arg(0), rules)
	if err != nil {
		return err
	}
	raw, err := data.EncodeMap(d)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	if *out == "" {
		_, err = os.Stdout.Write(raw)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(*out, raw, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Printf("wrote %s (%d agents)\n", *out, len(d.Agents))
	return nil
}
