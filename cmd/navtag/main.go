// Command navtag geotags a directory of survey images from the vehicle's
// navigation and depth logs.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/banshee-data/navtag/internal/catalog"
	"github.com/banshee-data/navtag/internal/config"
	"github.com/banshee-data/navtag/internal/depth"
	"github.com/banshee-data/navtag/internal/fsutil"
	"github.com/banshee-data/navtag/internal/imagetime"
	"github.com/banshee-data/navtag/internal/monitoring"
	"github.com/banshee-data/navtag/internal/pipeline"
	"github.com/banshee-data/navtag/internal/psonnav"
	"github.com/banshee-data/navtag/internal/report"
	"github.com/banshee-data/navtag/internal/security"
	"github.com/banshee-data/navtag/internal/tagstore"
	"github.com/banshee-data/navtag/internal/timeseries"
	"github.com/banshee-data/navtag/internal/version"
)

var (
	configPath  = flag.String("config", config.DefaultConfigPath, "path to the JSON run file")
	showVersion = flag.Bool("version", false, "print version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println("navtag", version.String())
		return
	}

	cfg, err := config.LoadRunConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sum, err := run(ctx, cfg, fsutil.OSFileSystem{})
	if err != nil {
		log.Fatalf("navtag: %v", err)
	}
	log.Printf("run %s complete: %d written, %d failed, %d clamped",
		sum.RunID, sum.Written, sum.Failed, sum.Clamped)
}

// run executes one configured tagging run against fsys.
func run(ctx context.Context, cfg *config.RunConfig, fsys fsutil.FileSystem) (pipeline.Summary, error) {
	navigation, err := loadNavigation(cfg, fsys)
	if err != nil {
		return pipeline.Summary{}, err
	}
	depthIx, err := loadDepth(cfg, fsys)
	if err != nil {
		return pipeline.Summary{}, err
	}
	resolver, err := imagetime.New(cfg.ImageTimeOptions())
	if err != nil {
		return pipeline.Summary{}, fmt.Errorf("image time: %w", err)
	}
	profile, err := cfg.GetCalibration()
	if err != nil {
		return pipeline.Summary{}, fmt.Errorf("calibration: %w", err)
	}
	policy, err := pipeline.ParsePolicy(cfg.GetHeaderFailure())
	if err != nil {
		return pipeline.Summary{}, err
	}

	outputDir := cfg.GetOutputDir()
	jobs, err := pipeline.Jobs(fsys, cfg.GetInputDir(), outputDir, cfg.GetImageGlob())
	if err != nil {
		return pipeline.Summary{}, err
	}
	if err := fsys.MkdirAll(outputDir, 0755); err != nil {
		return pipeline.Summary{}, fmt.Errorf("create output directory: %w", err)
	}

	p := &pipeline.Pipeline{
		Store:      tagstore.NewSidecar(fsys, outputDir),
		Resolver:   resolver,
		Navigation: navigation,
		Depth:      depthIx,
		Profile:    profile,
		Policy:     policy,
		Workers:    cfg.GetWorkers(),
	}

	var cat *catalog.Catalog
	if path := cfg.GetCatalogPath(); path != "" {
		if cat, err = openCatalog(path); err != nil {
			return pipeline.Summary{}, err
		}
		defer cat.Close()

		cfgJSON, err := json.Marshal(cfg)
		if err != nil {
			return pipeline.Summary{}, err
		}
		if p.RunID, err = cat.StartRun(cfgJSON); err != nil {
			return pipeline.Summary{}, err
		}
		p.Store = cat.Wrap(p.RunID, p.Store)
	}

	sum, runErr := p.Run(ctx, jobs)

	if cat != nil {
		totals := catalog.RunTotals{Total: sum.Total, Written: sum.Written, Failed: sum.Failed, Clamped: sum.Clamped}
		if err := cat.FinishRun(sum.RunID, totals); err != nil {
			runErr = errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return sum, runErr
	}

	writeReports(cfg, fsys, sum)
	return sum, nil
}

func loadNavigation(cfg *config.RunConfig, fsys fsutil.FileSystem) (*timeseries.Index[psonnav.Fix], error) {
	fixes, _, err := psonnav.LoadFile(fsys, cfg.GetNavigationLog(), psonnav.LoadOptions{
		Day:        cfg.GetNavigationDay(),
		DateOffset: cfg.GetNavigationDateOffset(),
	})
	if err != nil {
		return nil, err
	}
	if cfg.GetSortNavigation() {
		psonnav.SortByTime(fixes)
	}
	ix, err := timeseries.New(fixes, func(f psonnav.Fix) float64 { return f.Time })
	if err != nil {
		return nil, fmt.Errorf("navigation log %s: %w", cfg.GetNavigationLog(), err)
	}
	first, last := ix.Span()
	const layout = "2006-01-02T15:04:05.000Z"
	monitoring.Logf("navigation: %d fixes from %s to %s", ix.Len(),
		psonnav.Fix{Time: first}.Timestamp().Format(layout),
		psonnav.Fix{Time: last}.Timestamp().Format(layout))
	return ix, nil
}

func loadDepth(cfg *config.RunConfig, fsys fsutil.FileSystem) (*timeseries.Index[depth.Sample], error) {
	path := cfg.GetDepthLog()
	if path == "" {
		return nil, nil
	}
	samples, _, err := depth.LoadFile(fsys, path, depth.Options{
		Delimiter: cfg.GetDepthDelimiterRune(),
		TimeUnit:  cfg.GetDepthTimeUnit(),
	})
	if err != nil {
		return nil, err
	}
	if cfg.GetSortDepth() {
		depth.SortByTime(samples)
	}
	ix, err := timeseries.New(samples, depth.SampleTime)
	if err != nil {
		return nil, fmt.Errorf("depth log %s: %w", path, err)
	}
	return ix, nil
}

func openCatalog(path string) (*catalog.Catalog, error) {
	cat, err := catalog.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	if err := cat.MigrateUp(); err != nil {
		cat.Close()
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}
	return cat, nil
}

// writeReports renders the optional survey reports. Failures are logged;
// the tagged images are already written by now.
func writeReports(cfg *config.RunConfig, fsys fsutil.FileSystem, sum pipeline.Summary) {
	points := report.Points(sum.Results)
	for _, r := range []struct {
		path   string
		render func(fsutil.FileSystem, string, []report.Point) error
	}{
		{cfg.GetTrackPlot(), report.TrackPlot},
		{cfg.GetDepthChart(), report.DepthChart},
	} {
		if r.path == "" {
			continue
		}
		if err := security.ValidateReportPath(r.path, cfg.GetOutputDir()); err != nil {
			log.Printf("skipping report %s: %v", r.path, err)
			continue
		}
		if err := r.render(fsys, r.path, points); err != nil {
			log.Printf("report %s failed: %v", r.path, err)
			continue
		}
		log.Printf("wrote %s", r.path)
	}
}
