package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/rrrhhh38/phytiumpi-project/pkg/nutrition"
	"github.com/rrrhhh38/phytiumpi-project/pkg/orchestrator"
)

// uploadTimeout bounds one archive upload started from a completion hook.
const uploadTimeout = 30 * time.Second

// PutObjectAPI is the subset of the S3 client used by the archiver.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Record is the archived document: the completed job plus its result.
type Record struct {
	JobID      string              `json:"job_id"`
	StartTime  *time.Time          `json:"start_time,omitempty"`
	EndTime    *time.Time          `json:"end_time,omitempty"`
	Inputs     orchestrator.Inputs `json:"inputs"`
	Result     nutrition.Result    `json:"result"`
	ArchivedAt time.Time           `json:"archived_at"`
}

// S3Archiver uploads one Record per completed job.
type S3Archiver struct {
	client PutObjectAPI
	bucket string
	prefix string
	logger *zap.Logger
}

// New builds an archiver backed by a real S3 client.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*S3Archiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	awsCfg, err := loadAWSConfig(ctx, cfg)
	if err != nil {
		return nil, &ArchiveError{Op: "New", Bucket: cfg.Bucket, Err: err}
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return NewWithClient(client, cfg, logger)
}

// NewWithClient builds an archiver around an existing client.
func NewWithClient(client PutObjectAPI, cfg Config, logger *zap.Logger) (*S3Archiver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if client == nil {
		return nil, &ConfigError{Field: "Client", Message: "client is required"}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.normalizedPrefix(),
		logger: logger,
	}, nil
}

func loadAWSConfig(ctx context.Context, cfg Config) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, err
	}
	awsCfg.Region = resolveRegion(cfg.Endpoint, awsCfg.Region)
	return awsCfg, nil
}

// resolveRegion applies the us-east-1 fallback for AWS S3 only. Custom
// endpoints get no default.
func resolveRegion(endpoint, sdkRegion string) string {
	if sdkRegion != "" {
		return sdkRegion
	}
	if endpoint == "" {
		return DefaultAWSRegion
	}
	return ""
}

func (a *S3Archiver) Bucket() string { return a.bucket }

// Key returns the object key for a job.
func (a *S3Archiver) Key(jobID string) string {
	return a.prefix + jobID + ".json"
}

// Archive uploads the record for a completed job.
func (a *S3Archiver) Archive(ctx context.Context, job orchestrator.Job, result nutrition.Result) error {
	if job.ID == "" {
		return &ArchiveError{Op: "PutObject", Bucket: a.bucket, Err: fmt.Errorf("job id is empty")}
	}
	key := a.Key(job.ID)

	body, err := json.MarshalIndent(Record{
		JobID:      job.ID,
		StartTime:  job.StartTime,
		EndTime:    job.EndTime,
		Inputs:     job.Inputs,
		Result:     result.Normalized(),
		ArchivedAt: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return &ArchiveError{Op: "Marshal", Bucket: a.bucket, Key: key, Err: err}
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentLength: aws.Int64(int64(len(body))),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return wrapError("PutObject", a.bucket, key, err)
	}

	a.logger.Info("Result archived",
		zap.String("job_id", job.ID),
		zap.String("bucket", a.bucket),
		zap.String("key", key))
	return nil
}

// Hook adapts the archiver to an orchestrator completion hook. Upload
// failures are logged; they never affect the job.
func (a *S3Archiver) Hook() orchestrator.CompletionHook {
	return func(ctx context.Context, job orchestrator.Job, result nutrition.Result) {
		ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
		defer cancel()
		if err := a.Archive(ctx, job, result); err != nil {
			a.logger.Warn("Result archive failed",
				zap.String("job_id", job.ID),
				zap.Error(err))
		}
	}
}
