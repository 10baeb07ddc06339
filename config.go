package sra

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/kbasefaqs/sr-acceptor/flags"
	"github.com/kbasefaqs/sr-acceptor/service"
	"github.com/kbasefaqs/sr-acceptor/types"
)

// Config holds the application configuration
type Config struct {
	RunConfig        types.RunConfiguration
	CatalogFile      string                            // Empty uses the embedded catalog
	OutputDir        string                            // Directory receiving the run directories
	MinSuccessRate   float64                           // Quality gate, 0 disables it
	RunInterval      time.Duration                     // Interval between runs
	RunOnce          bool                              // Indicates if the service should exit after one run
	ShowProgress     bool                              // Whether to log periodic progress updates
	ProgressInterval time.Duration                     // Interval between progress updates when ShowProgress is 'true'
	Platform         types.Platform                    // Overrides the host probe when set
	Drivers          map[types.ScreenReaderKind]string // Automation helper per screen reader
	Service          service.Config
	Log              log.Logger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	kinds, err := types.ParseScreenReaderList(ctx.StringSlice(flags.ScreenReaders.Name))
	if err != nil {
		return nil, err
	}

	runCfg := types.RunConfiguration{
		EnabledScreenReaders:     kinds,
		TestSuites:               ctx.StringSlice(flags.Suites.Name),
		ParallelExecution:        ctx.Bool(flags.Parallel.Name),
		GenerateComparisonReport: ctx.Bool(flags.ComparisonReport.Name),
		SaveIndividualReports:    ctx.Bool(flags.SaveIndividualReports.Name),
		ContinueOnFailure:        ctx.Bool(flags.ContinueOnFailure.Name),
		CaseTimeout:              ctx.Duration(flags.CaseTimeout.Name),
	}
	if err := runCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid run configuration: %w", err)
	}
	runCfg = runCfg.Clone()

	var catalogFile string
	if c := ctx.String(flags.Catalog.Name); c != "" {
		catalogFile, err = filepath.Abs(c)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for catalog '%s': %w", c, err)
		}
	}

	outputDir := ctx.String(flags.OutputDir.Name)
	if outputDir == "" {
		outputDir = "reports"
	}
	outputDir, err = filepath.Abs(outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for output directory '%s': %w", outputDir, err)
	}

	minSuccessRate := ctx.Float64(flags.MinSuccessRate.Name)
	if minSuccessRate < 0 || minSuccessRate > 100 {
		return nil, fmt.Errorf("min success rate must be between 0 and 100, got %v", minSuccessRate)
	}

	drivers := make(map[types.ScreenReaderKind]string, len(flags.DriverFlags))
	for kind, f := range flags.DriverFlags {
		drivers[kind] = ctx.String(f.Name)
	}

	metricsCfg := opmetrics.ReadCLIConfig(ctx)
	if err := metricsCfg.Check(); err != nil {
		return nil, fmt.Errorf("invalid metrics configuration: %w", err)
	}

	runInterval := ctx.Duration(flags.RunInterval.Name)

	return &Config{
		RunConfig:        runCfg,
		CatalogFile:      catalogFile,
		OutputDir:        outputDir,
		MinSuccessRate:   minSuccessRate,
		RunInterval:      runInterval,
		RunOnce:          runInterval == 0,
		ShowProgress:     ctx.Bool(flags.ShowProgress.Name),
		ProgressInterval: ctx.Duration(flags.ProgressInterval.Name),
		Platform:         types.Platform(ctx.String(flags.PlatformOverride.Name)),
		Drivers:          drivers,
		Service: service.Config{
			HealthzAddr:    ctx.String(flags.HealthzAddr.Name),
			MetricsEnabled: metricsCfg.Enabled,
			MetricsAddr:    metricsCfg.ListenAddr,
			MetricsPort:    metricsCfg.ListenPort,
		},
		Log: log,
	}, nil
}
