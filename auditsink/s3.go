package auditsink

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/chatgate"
	"github.com/MrEthical07/chatgate/internal/logging"
	"github.com/google/uuid"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const (
	DefaultBatchSize = 500
	contentType      = "application/x-ndjson"
	uploadTimeout    = 30 * time.Second
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// ErrNoBucket is returned by NewS3Sink without a bucket name.
var ErrNoBucket = errors.New("auditsink: bucket required")

// PutObjectAPI is the slice of *s3.Client the sink uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Config names the bucket and, for S3-compatible stores such as MinIO, the
// endpoint and static credentials.
type S3Config struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BatchSize       int
}

// NewS3Client builds an S3 client from cfg. Without static credentials the
// default AWS credential chain applies.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("auditsink: load aws config: %w", err)
	}

	return newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// S3Sink buffers audit events as JSON lines and uploads each batch as one
// object under Prefix/yyyy/mm/dd/.
type S3Sink struct {
	client    PutObjectAPI
	bucket    string
	prefix    string
	batchSize int
	logger    logging.Logger
	now       func() time.Time

	mu       sync.Mutex
	buf      bytes.Buffer
	count    int
	uploaded int
}

func NewS3Sink(client PutObjectAPI, cfg S3Config, logger logging.Logger) (*S3Sink, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, ErrNoBucket
	}
	if client == nil {
		return nil, errors.New("auditsink: s3 client required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Sink{
		client:    client,
		bucket:    cfg.Bucket,
		prefix:    prefix,
		batchSize: cfg.BatchSize,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Emit appends event to the current batch and uploads the batch when full.
// Upload failures are logged; the batch is kept for the next attempt.
func (s *S3Sink) Emit(ctx context.Context, event chatgate.AuditEvent) {
	line, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.buf.Write(line)
	s.buf.WriteByte('\n')
	s.count++

	if s.count < s.batchSize {
		return
	}
	if err := s.flushLocked(ctx); err != nil {
		s.logger.Warn(ctx, "audit batch upload failed", "events", s.count, "error", err)
	}
}

// Flush uploads whatever is buffered.
func (s *S3Sink) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked(ctx)
}

// Uploaded reports how many objects have been written.
func (s *S3Sink) Uploaded() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uploaded
}

func (s *S3Sink) flushLocked(ctx context.Context) error {
	if s.count == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	body := bytes.NewReader(s.buf.Bytes())
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey()),
		Body:          body,
		ContentLength: aws.Int64(int64(body.Len())),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("auditsink: put object: %w", err)
	}

	s.buf.Reset()
	s.count = 0
	s.uploaded++
	return nil
}

func (s *S3Sink) objectKey() string {
	d := s.now().UTC()
	return fmt.Sprintf("%s%04d/%02d/%02d/%s.jsonl", s.prefix, d.Year(), d.Month(), d.Day(), uuid.New())
}
