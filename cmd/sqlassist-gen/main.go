// sqlassist-gen generates record types, descriptors and binders from an
// entity manifest.
//
//	go run github.com/syssam/sqlassist/cmd/sqlassist-gen -manifest entities.yaml -out ./models
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/syssam/sqlassist/entity/entitygen"
)

func main() {
	var (
		manifest = flag.String("manifest", "entities.yaml", "path of the entity manifest")
		out      = flag.String("out", "", "output directory (default: the manifest directory)")
		verbose  = flag.Bool("v", false, "log generated files")
	)
	flag.Parse()
	if err := run(*manifest, *out, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "sqlassist-gen: %v\n", err)
		os.Exit(1)
	}
}

func run(manifest, out string, verbose bool) error {
	m, err := entitygen.LoadManifest(manifest)
	if err != nil {
		return err
	}
	if out == "" {
		out = filepath.Dir(manifest)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := entitygen.Generate(ctx, m, out); err != nil {
		return err
	}
	if verbose {
		for _, e := range m.Entities {
			slog.Info("generated", "entity", e.Name, "table", e.Table, "file", filepath.Join(out, entitygen.FileName(e)))
		}
	}
	return nil
}
