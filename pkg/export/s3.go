// Package export writes feed records as JSON Lines to S3-compatible object
// storage.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/Sternrassler/catalog-feed/pkg/transform"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

const contentType = "application/x-ndjson"

var (
	exportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_exports_total",
		Help: "Total feed exports by result",
	}, []string{"result"})

	exportedRecords = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_exported_records_total",
		Help: "Total records written to object storage",
	})
)

// ErrDisabled is returned when no bucket is configured.
var ErrDisabled = errors.New("export not configured")

// Config options for the S3 exporter.
type Config struct {
	Bucket          string // S3 bucket name
	Region          string // AWS region
	Prefix          string // Key prefix, e.g. "feeds/example"
	AccessKeyID     string // Optional static access key ID
	SecretAccessKey string // Optional static secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing
}

// Uploader is the subset of the S3 upload manager the exporter uses.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Exporter uploads record sets as JSONL objects.
type S3Exporter struct {
	uploader Uploader
	bucket   string
	prefix   string
	logger   zerolog.Logger
}

// NewS3Exporter creates an exporter from cfg. An empty bucket returns
// ErrDisabled.
func NewS3Exporter(ctx context.Context, cfg Config, logger zerolog.Logger) (*S3Exporter, error) {
	if cfg.Bucket == "" {
		return nil, ErrDisabled
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return NewS3ExporterWithUploader(manager.NewUploader(client), cfg.Bucket, cfg.Prefix, logger), nil
}

// NewS3ExporterWithUploader creates an exporter around an existing uploader.
func NewS3ExporterWithUploader(uploader Uploader, bucket, prefix string, logger zerolog.Logger) *S3Exporter {
	return &S3Exporter{
		uploader: uploader,
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		logger:   logger,
	}
}

// ObjectKey returns the key a run is exported under.
func (e *S3Exporter) ObjectKey(runID string) string {
	return path.Join(e.prefix, runID+".jsonl")
}

// Export streams records as one JSON object per line to
// <prefix>/<runID>.jsonl and returns the object key.
func (e *S3Exporter) Export(ctx context.Context, runID string, records []transform.Record) (string, error) {
	if runID == "" {
		return "", errors.New("run id is required")
	}
	key := e.ObjectKey(runID)
	start := time.Now()

	pr, pw := io.Pipe()
	go func() {
		enc := json.NewEncoder(pw)
		for _, r := range records {
			if err := enc.Encode(r); err != nil {
				pw.CloseWithError(fmt.Errorf("encode record %s: %w", r.ID, err))
				return
			}
		}
		pw.Close()
	}()

	_, err := e.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        pr,
		ContentType: aws.String(contentType),
	})
	// Unblock the encoder if the upload stopped reading early.
	pr.CloseWithError(io.ErrClosedPipe)
	if err != nil {
		exportsTotal.WithLabelValues("failed").Inc()
		e.logger.Error().Err(err).Str("run_id", runID).Str("key", key).Msg("Feed export failed")
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	exportsTotal.WithLabelValues("success").Inc()
	exportedRecords.Add(float64(len(records)))
	e.logger.Info().
		Str("run_id", runID).
		Str("bucket", e.bucket).
		Str("key", key).
		Int("records", len(records)).
		Dur("duration", time.Since(start)).
		Msg("Feed exported")

	return key, nil
}
