// Package backup archives the vault tree and the state database to S3.
//
// Every run uploads under a fresh UTC-timestamped prefix, so archives are
// immutable and a bucket lifecycle rule can expire old ones.
package backup

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/marmos91/cipherdrop/internal/logger"
	"github.com/marmos91/cipherdrop/internal/telemetry"
)

// Config holds the destination settings for an archive run.
type Config struct {
	// Bucket is the S3 bucket name.
	Bucket string

	// Prefix is prepended to every object key, before the timestamp
	// directory. Default: "cipherdrop".
	Prefix string

	// Region is the AWS region (optional, uses SDK default if empty).
	Region string

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible
	// services). Path-style addressing is used when set.
	Endpoint string

	// AccessKeyID and SecretAccessKey are static credentials, typically
	// for a MinIO endpoint. When empty the SDK's default resolution
	// chain applies (environment, shared config, instance role).
	AccessKeyID     string
	SecretAccessKey string
}

// Uploader is the single S3 operation the archiver needs. *s3.Client
// satisfies it; tests substitute a recorder.
type Uploader interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Summary describes a completed archive run.
type Summary struct {
	// Bucket the archive was written to.
	Bucket string `json:"bucket"`

	// Prefix is the full run prefix including the timestamp directory.
	Prefix string `json:"prefix"`

	// Files is the number of objects uploaded.
	Files int `json:"files"`

	// Bytes is the total payload size uploaded.
	Bytes int64 `json:"bytes"`
}

// Archiver uploads vault and state files to S3.
type Archiver struct {
	client Uploader
	config Config

	// now stamps the run prefix; overridable in tests.
	now func() time.Time
}

// New creates an Archiver with an existing client.
func New(client Uploader, cfg Config) *Archiver {
	if cfg.Prefix == "" {
		cfg.Prefix = "cipherdrop"
	}
	return &Archiver{
		client: client,
		config: cfg,
		now:    time.Now,
	}
}

// NewFromConfig creates an Archiver by building an S3 client from cfg.
// This is the preferred constructor when no client exists yet.
func NewFromConfig(ctx context.Context, cfg Config) (*Archiver, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	return New(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

// Run archives the vault tree and the given state paths.
//
// Object layout under the run prefix:
//
//	<prefix>/<timestamp>/vault/<path relative to vaultRoot>
//	<prefix>/<timestamp>/state/<basename>          (file databases)
//	<prefix>/<timestamp>/state/<basename>/<rel>    (directory databases)
//
// A missing vault root is treated as empty (nothing received yet); a
// missing state path is an error, since the caller named it explicitly.
func (a *Archiver) Run(ctx context.Context, vaultRoot string, statePaths ...string) (*Summary, error) {
	ctx, span := telemetry.StartBackupSpan(ctx, telemetry.SpanBackupRun,
		telemetry.Bucket(a.config.Bucket))
	defer span.End()

	runPrefix := path.Join(a.config.Prefix, a.now().UTC().Format("20060102T150405Z"))
	summary := &Summary{Bucket: a.config.Bucket, Prefix: runPrefix}

	logger.Info("Backup started",
		logger.Bucket(a.config.Bucket),
		"prefix", runPrefix,
		logger.Path(vaultRoot))

	if err := a.uploadTree(ctx, vaultRoot, path.Join(runPrefix, "vault"), summary); err != nil {
		if !os.IsNotExist(err) {
			telemetry.RecordError(ctx, err)
			return nil, err
		}
		logger.Warn("Vault root does not exist, skipping", logger.Path(vaultRoot))
	}

	for _, statePath := range statePaths {
		info, err := os.Stat(statePath)
		if err != nil {
			telemetry.RecordError(ctx, err)
			return nil, fmt.Errorf("stat state path: %w", err)
		}

		base := path.Join(runPrefix, "state")
		if info.IsDir() {
			err = a.uploadTree(ctx, statePath, path.Join(base, filepath.Base(statePath)), summary)
		} else {
			err = a.uploadFile(ctx, statePath, path.Join(base, filepath.Base(statePath)), summary)
		}
		if err != nil {
			telemetry.RecordError(ctx, err)
			return nil, err
		}
	}

	logger.Info("Backup complete",
		logger.Bucket(a.config.Bucket),
		"prefix", runPrefix,
		"files", summary.Files,
		logger.Bytes(int(summary.Bytes)))
	return summary, nil
}

// uploadTree uploads every regular file under root, keyed by its path
// relative to root.
func (a *Archiver) uploadTree(ctx context.Context, root, keyPrefix string, summary *Summary) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return fmt.Errorf("relativize %s: %w", p, err)
		}
		return a.uploadFile(ctx, p, path.Join(keyPrefix, filepath.ToSlash(rel)), summary)
	})
}

// uploadFile uploads a single file to key.
func (a *Archiver) uploadFile(ctx context.Context, filePath, key string, summary *Summary) error {
	ctx, span := telemetry.StartBackupSpan(ctx, telemetry.SpanBackupFile,
		telemetry.Bucket(a.config.Bucket),
		telemetry.StorageKey(key))
	defer span.End()

	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", filePath, err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.config.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("s3 put object %s: %w", key, err)
	}

	summary.Files++
	summary.Bytes += info.Size()
	logger.Debug("Uploaded object",
		logger.Key(key),
		logger.Bytes(int(info.Size())))
	return nil
}
