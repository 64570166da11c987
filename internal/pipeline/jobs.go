package pipeline

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/navtag/internal/fsutil"
)

// Job is one image to tag: the source file and where its tagged copy goes.
type Job struct {
	Source string `json:"source"`
	Dest   string `json:"dest"`
}

// Jobs finds every file under inputDir whose base name matches glob and
// maps it to the same relative path under outputDir. Files already inside
// outputDir are skipped.
func Jobs(fsys fsutil.FileSystem, inputDir, outputDir, glob string) ([]Job, error) {
	if inputDir == "" || outputDir == "" {
		return nil, errors.New("input and output directories are required")
	}
	if filepath.Clean(inputDir) == filepath.Clean(outputDir) {
		return nil, fmt.Errorf("output directory %s is the input directory", outputDir)
	}

	matches, err := fsys.Glob(inputDir, glob)
	if err != nil {
		return nil, fmt.Errorf("find images in %s: %w", inputDir, err)
	}
	outPrefix := filepath.Clean(outputDir) + string(filepath.Separator)
	jobs := make([]Job, 0, len(matches))
	for _, src := range matches {
		if strings.HasPrefix(src, outPrefix) {
			continue
		}
		rel, err := filepath.Rel(inputDir, src)
		if err != nil {
			return nil, fmt.Errorf("relative path of %s: %w", src, err)
		}
		jobs = append(jobs, Job{Source: src, Dest: filepath.Join(outputDir, rel)})
	}
	return jobs, nil
}
