package flags

import (
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
	opmetrics "github.com/ethereum-optimism/optimism/op-service/metrics"

	"github.com/kbasefaqs/sr-acceptor/types"
)

const EnvVarPrefix = "SR_ACCEPTOR"

var (
	ScreenReaders = &cli.StringSliceFlag{
		Name:    "screen-readers",
		Value:   cli.NewStringSlice("all"),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SCREEN_READERS"),
		Usage:   "Screen readers to run, comma separated (nvda, jaws, voiceover or all). Screen readers the host cannot run are skipped.",
		Action: func(ctx *cli.Context, names []string) error {
			_, err := types.ParseScreenReaderList(names)
			return err
		},
	}
	Suites = &cli.StringSliceFlag{
		Name:     "suites",
		Required: true,
		EnvVars:  opservice.PrefixEnvVar(EnvVarPrefix, "SUITES"),
		Usage:    "Test suites to run, comma separated (eg. 'aria,forms')",
	}
	Catalog = &cli.StringFlag{
		Name:    "catalog",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CATALOG"),
		Usage:   "Path to a test case catalog file. Uses the embedded catalog when empty.",
	}
	Parallel = &cli.BoolFlag{
		Name:    "parallel",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PARALLEL"),
		Usage:   "Run screen readers concurrently, one lane per screen reader",
	}
	ContinueOnFailure = &cli.BoolFlag{
		Name:    "continue-on-failure",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONTINUE_ON_FAILURE"),
		Usage:   "Keep running after a failed case. When false the run halts at the first failure.",
	}
	ComparisonReport = &cli.BoolFlag{
		Name:    "comparison-report",
		Value:   true,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "COMPARISON_REPORT"),
		Usage:   "Write comparison-report.json and its digest to the run directory",
	}
	SaveIndividualReports = &cli.BoolFlag{
		Name:    "save-individual-reports",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SAVE_INDIVIDUAL_REPORTS"),
		Usage:   "Write one <screen-reader>-results.json file per screen reader",
	}
	CaseTimeout = &cli.DurationFlag{
		Name:    "case-timeout",
		Value:   types.DefaultCaseTimeout,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CASE_TIMEOUT"),
		Usage:   "Timeout for a single case on a single screen reader, unless the case sets its own",
	}
	OutputDir = &cli.StringFlag{
		Name:    "output-dir",
		Value:   "reports",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "OUTPUT_DIR"),
		Usage:   "Directory receiving one testrun-<runID> directory per run",
	}
	MinSuccessRate = &cli.Float64Flag{
		Name:    "min-success-rate",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "MIN_SUCCESS_RATE"),
		Usage:   "Fail the run when its success rate (0-100) is below this value, even if failures were tolerated",
		Action: func(ctx *cli.Context, v float64) error {
			if v < 0 || v > 100 {
				return fmt.Errorf("min-success-rate must be between 0 and 100, got %v", v)
			}
			return nil
		},
	}
	RunInterval = &cli.DurationFlag{
		Name:    "run-interval",
		Value:   0,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "RUN_INTERVAL"),
		Usage:   "Interval between runs (e.g. '1h', '30m'). Set to 0 or omit for run-once mode.",
	}
	ShowProgress = &cli.BoolFlag{
		Name:    "show-progress",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SHOW_PROGRESS"),
		Usage:   "Log periodic progress updates while a run is executing",
	}
	ProgressInterval = &cli.DurationFlag{
		Name:    "progress-interval",
		Value:   30 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PROGRESS_INTERVAL"),
		Usage:   "Interval between progress updates when --show-progress is set",
	}
	PlatformOverride = &cli.StringFlag{
		Name:    "platform-override",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PLATFORM_OVERRIDE"),
		Usage:   "Report this platform (windows, darwin or linux) instead of probing the host",
		Action: func(ctx *cli.Context, v string) error {
			return validatePlatform(v)
		},
	}
	NVDADriver = &cli.StringFlag{
		Name:    "nvda-driver",
		Value:   "nvda-automation",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "NVDA_DRIVER"),
		Usage:   "Path to the NVDA automation helper",
	}
	JAWSDriver = &cli.StringFlag{
		Name:    "jaws-driver",
		Value:   "jaws-automation",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "JAWS_DRIVER"),
		Usage:   "Path to the JAWS automation helper",
	}
	VoiceOverDriver = &cli.StringFlag{
		Name:    "voiceover-driver",
		Value:   "voiceover-automation",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "VOICEOVER_DRIVER"),
		Usage:   "Path to the VoiceOver automation helper",
	}
	HealthzAddr = &cli.StringFlag{
		Name:    "healthz.addr",
		Value:   "0.0.0.0:8080",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "HEALTHZ_ADDR"),
		Usage:   "Listen address of the /healthz endpoint. Empty disables it.",
	}
)

// validPlatforms are the values accepted by --platform-override
var validPlatforms = []types.Platform{types.PlatformWindows, types.PlatformMacOS, types.PlatformLinux}

func validatePlatform(v string) error {
	if v == "" {
		return nil
	}
	for _, p := range validPlatforms {
		if types.Platform(v) == p {
			return nil
		}
	}
	names := make([]string, len(validPlatforms))
	for i, p := range validPlatforms {
		names[i] = string(p)
	}
	return fmt.Errorf("platform-override must be one of: %s", strings.Join(names, ", "))
}

// DriverFlags maps each screen reader to the flag naming its helper binary
var DriverFlags = map[types.ScreenReaderKind]*cli.StringFlag{
	types.ScreenReaderNVDA:      NVDADriver,
	types.ScreenReaderJAWS:      JAWSDriver,
	types.ScreenReaderVoiceOver: VoiceOverDriver,
}

var requiredFlags = []cli.Flag{
	Suites,
}

var optionalFlags = []cli.Flag{
	ScreenReaders,
	Catalog,
	Parallel,
	ContinueOnFailure,
	ComparisonReport,
	SaveIndividualReports,
	CaseTimeout,
	OutputDir,
	MinSuccessRate,
	RunInterval,
	ShowProgress,
	ProgressInterval,
	PlatformOverride,
	NVDADriver,
	JAWSDriver,
	VoiceOverDriver,
	HealthzAddr,
}
var Flags []cli.Flag

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)
	optionalFlags = append(optionalFlags, opmetrics.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}
