package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rrrhhh38/phytiumpi-project/internal/config"
	"github.com/rrrhhh38/phytiumpi-project/internal/observability"
)

var doctorArchive bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long: `Run diagnostic checks on the configuration and the host and suggest fixes
for common issues.

Examples:
  platesense doctor             # Config, analysis command and artifact paths
  platesense doctor --archive   # Also check AWS credentials for the archive`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorArchive, "archive", false, "Check archive credentials even when archive.enabled is false")
}

// doctorReport numbers and logs diagnostic checks.
type doctorReport struct {
	num    int
	total  int
	ok     bool
	warned bool
}

func (r *doctorReport) pass(label, detail string, fields ...zap.Field) {
	r.num++
	observability.CLILogger.Info(fmt.Sprintf("[%d/%d] Checking %s... ✅ %s", r.num, r.total, label, detail), fields...)
}

func (r *doctorReport) warn(label, detail string, fields ...zap.Field) {
	r.num++
	r.warned = true
	observability.CLILogger.Warn(fmt.Sprintf("[%d/%d] Checking %s... ⚠️  %s", r.num, r.total, label, detail), fields...)
}

func (r *doctorReport) fail(label, detail string, err error) {
	r.num++
	r.ok = false
	observability.CLILogger.Error(fmt.Sprintf("[%d/%d] Checking %s... ❌ %s", r.num, r.total, label, detail), zap.Error(err))
}

func runDoctor(cmd *cobra.Command, args []string) error {
	bannerName := config.AppName + " doctor"
	observability.CLILogger.Info("=== " + bannerName + " ===")
	observability.CLILogger.Info("")
	observability.CLILogger.Info("Running diagnostic checks...")
	observability.CLILogger.Info("")

	r := &doctorReport{total: 4, ok: true}

	goVersion := runtime.Version()
	if goVersion >= "go1.23" {
		r.pass("Go version", goVersion, zap.String("go_version", goVersion))
	} else {
		r.warn("Go version", goVersion+" (recommended: go1.23+)", zap.String("go_version", goVersion))
	}

	if dir, err := os.UserConfigDir(); err != nil {
		r.fail("config directory", "Cannot find config directory", err)
	} else {
		r.pass("config directory", filepath.Join(dir, config.AppName), zap.String("config_dir", dir))
	}

	r.pass("environment", runtime.GOOS+"/"+runtime.GOARCH,
		zap.String("os", runtime.GOOS),
		zap.String("arch", runtime.GOARCH))

	cfg, err := config.Load(cmd.Context())
	if err != nil {
		r.fail("configuration", "Configuration is invalid", err)
		return doctorSummary(r, bannerName)
	}
	source := cfg.File
	if source == "" {
		source = "built-in defaults"
	}
	r.pass("configuration", source, zap.String("config_file", cfg.File))

	withArchive := cfg.Archive.Enabled || doctorArchive
	r.total += 4
	if withArchive {
		r.total += 2
	}

	if path, err := resolveCommand(cfg.Analysis.Command, cfg.Analysis.Dir); err != nil {
		r.fail("analysis command", "Cannot execute "+cfg.Analysis.Command, err)
	} else {
		r.pass("analysis command", path, zap.String("command", path))
	}

	imageDir := filepath.Dir(cfg.Readiness.ImagePath)
	if cfg.Readiness.ImageGlob != "" {
		imageDir = cfg.Readiness.ImageRoot
	}
	checkDir(r, "image signal directory", imageDir)
	checkDir(r, "weight signal directory", filepath.Dir(cfg.Readiness.WeightPath))
	checkDir(r, "result directory", filepath.Dir(cfg.Result.Path))

	if withArchive {
		runArchiveChecks(cmd.Context(), r, cfg.Archive)
	}

	return doctorSummary(r, bannerName)
}

// checkDir reports whether dir exists. A missing directory is a warning
// since producers and the service create their own.
func checkDir(r *doctorReport, label, dir string) {
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		r.pass(label, dir, zap.String("path", dir))
	case err == nil:
		r.fail(label, dir+" is not a directory", fmt.Errorf("not a directory: %s", dir))
	case os.IsNotExist(err):
		r.warn(label, dir+" does not exist yet", zap.String("path", dir))
	default:
		r.fail(label, "Cannot stat "+dir, err)
	}
}

func doctorSummary(r *doctorReport, bannerName string) error {
	observability.CLILogger.Info("")
	switch {
	case r.ok && !r.warned:
		observability.CLILogger.Info(fmt.Sprintf("✅ All checks passed! Your %s installation is healthy.", bannerName))
	case r.ok:
		observability.CLILogger.Warn("⚠️  Checks passed with warnings. Review the output above for details.")
	default:
		observability.CLILogger.Warn("⚠️  Some checks failed. Review the output above for details.")
	}
	observability.CLILogger.Info("")
	observability.CLILogger.Info("=== End Diagnostics ===")
	if !r.ok {
		return exitError(ExitFailure, "Diagnostics reported problems", nil)
	}
	return nil
}

// runArchiveChecks resolves AWS credentials the way the archive will.
func runArchiveChecks(ctx context.Context, r *doctorReport, cfg config.ArchiveConfig) {
	observability.CLILogger.Info("")
	observability.CLILogger.Info("Archive Checks:")

	if cfg.AccessKeyID != "" {
		r.pass("AWS credentials", "Static credentials from config",
			zap.String("access_key", maskAccessKey(cfg.AccessKeyID)))
		r.pass("credential source", "archive.access_key_id")
		return
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		r.fail("AWS credentials", "Cannot load AWS config", err)
		printAWSCredentialsHelp()
		return
	}

	creds, err := awsCfg.Credentials.Retrieve(ctx)
	if err != nil {
		r.fail("AWS credentials", "Cannot retrieve credentials", err)
		printAWSCredentialsHelp()
		return
	}

	r.pass("AWS credentials", "Found credentials",
		zap.String("access_key", maskAccessKey(creds.AccessKeyID)),
		zap.String("source", creds.Source))

	source := creds.Source
	if source == "" {
		source = "unknown"
	}
	r.pass("credential source", source, zap.String("credential_source", source))
}

// maskAccessKey masks all but the last 4 characters of an access key.
func maskAccessKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return "****" + key[len(key)-4:]
}

func printAWSCredentialsHelp() {
	observability.CLILogger.Info("")
	observability.CLILogger.Info("To configure AWS credentials for the result archive:")
	observability.CLILogger.Info("  1. Set AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY environment variables, or")
	observability.CLILogger.Info("  2. Set archive.profile to a profile from 'aws configure', or")
	observability.CLILogger.Info("  3. Set archive.access_key_id and archive.secret_access_key")
	observability.CLILogger.Info("")
	observability.CLILogger.Info("For S3-compatible storage (MinIO, Wasabi, etc.), also set:")
	observability.CLILogger.Info("  - archive.endpoint and archive.force_path_style")
	observability.CLILogger.Info("")
}
