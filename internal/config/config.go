// Package config collects the run settings of the command line tools from
// the environment. Flags override individual values before Validate is
// called.
package config

import (
	"fmt"
	"runtime"
	"time"

	"github.com/go-playground/validator"

	"github.com/OFFIS-RIT/lodstats/internal/util"
)

// DefaultSizeLimit is the size ceiling above which a file is left to the
// streaming re-pass.
const DefaultSizeLimit int64 = 100 << 20

type Config struct {
	Root string `validate:"required"`

	// SizeLimit disables the ceiling when 0.
	SizeLimit          int64         `validate:"gte=0"`
	StreamingThreshold int64         `validate:"gte=0"`
	Workers            int           `validate:"gte=1"`
	Strategy           string        `validate:"oneof=whole-graph streaming"`
	FileTimeout        time.Duration `validate:"gte=0"`
	SkipProcessed      bool

	LogFile     string
	MetricsFile string
	Debug       bool

	S3 S3Config
}

// S3Config configures publishing of written sidecars. Publishing is off
// unless a bucket is set.
type S3Config struct {
	Region    string
	Endpoint  string `validate:"omitempty,url"`
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// DefaultWorkers leaves one CPU to the coordinating process.
func DefaultWorkers() int {
	return max(runtime.NumCPU()-1, 1)
}

// FromEnv reads the LODSTATS_* and AWS_* variables.
func FromEnv() Config {
	sizeLimit := util.GetEnvInt64("LODSTATS_SIZE_LIMIT", DefaultSizeLimit)

	return Config{
		Root:               util.GetEnv("LODSTATS_ROOT"),
		SizeLimit:          sizeLimit,
		StreamingThreshold: util.GetEnvInt64("LODSTATS_STREAMING_THRESHOLD", sizeLimit),
		Workers:            util.GetEnvInt("LODSTATS_WORKERS", DefaultWorkers()),
		Strategy:           util.GetEnvString("LODSTATS_STRATEGY", "whole-graph"),
		SkipProcessed:      util.GetEnvBool("LODSTATS_SKIP_PROCESSED", false),
		FileTimeout:        util.GetEnvDuration("LODSTATS_FILE_TIMEOUT", 0),
		LogFile:            util.GetEnvString("LODSTATS_LOG_FILE", "extract.log"),
		MetricsFile:        util.GetEnv("LODSTATS_METRICS_FILE"),
		Debug:              util.GetEnvBool("DEBUG", false),
		S3: S3Config{
			Region:    util.GetEnvString("AWS_REGION", "us-east-1"),
			Endpoint:  util.GetEnv("AWS_ENDPOINT"),
			AccessKey: util.GetEnv("AWS_ACCESS_KEY"),
			SecretKey: util.GetEnv("AWS_SECRET_KEY"),
			Bucket:    util.GetEnv("AWS_BUCKET"),
			Prefix:    util.GetEnv("AWS_PREFIX"),
		},
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(validateS3, S3Config{})
	return v
}

func validateS3(sl validator.StructLevel) {
	c := sl.Current().Interface().(S3Config)
	if !c.Enabled() {
		return
	}
	if c.AccessKey == "" {
		sl.ReportError(c.AccessKey, "AccessKey", "AccessKey", "required_with_bucket", "")
	}
	if c.SecretKey == "" {
		sl.ReportError(c.SecretKey, "SecretKey", "SecretKey", "required_with_bucket", "")
	}
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
