// Command print-tags dumps the tags written for survey images, or the runs
// recorded in a survey catalog.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/banshee-data/navtag/internal/catalog"
	"github.com/banshee-data/navtag/internal/fsutil"
)

func main() {
	catalogPath := flag.String("catalog", "", "print runs from this catalog instead of image tags")
	runID := flag.String("run", "", "with -catalog, print the tag rows of one run")
	flag.Parse()

	if *catalogPath != "" {
		if _, err := os.Stat(*catalogPath); err != nil {
			log.Fatalf("catalog %s not accessible: %v", *catalogPath, err)
		}
		cat, err := catalog.Open(*catalogPath)
		if err != nil {
			log.Fatalf("open catalog: %v", err)
		}
		defer cat.Close()
		if err := PrintCatalog(os.Stdout, cat, *runID); err != nil {
			log.Fatalf("print catalog: %v", err)
		}
		return
	}

	if flag.NArg() == 0 {
		log.Fatal("usage: print-tags image... | print-tags -catalog file [-run id]")
	}
	failed := 0
	for _, image := range flag.Args() {
		if err := PrintTags(os.Stdout, fsutil.OSFileSystem{}, image); err != nil {
			log.Printf("%s: %v", image, err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}
