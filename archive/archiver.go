package archive

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"balramcms/api/config"
	"balramcms/api/metrics"
	"balramcms/api/models"
)

// ObjectPutter is the slice of the S3 client the archiver uses.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewS3Client builds an S3 client for region. SDK retries are disabled; the
// archiver retries on its own schedule.
func NewS3Client(ctx context.Context, region string) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return s3.NewFromConfig(awsCfg, disableSDKRetries), nil
}

// disableSDKRetries leaves the client with a single attempt per call. A zero
// RetryMaxAttempts alone is ignored by the client, and a non-zero one (from
// AWS_MAX_ATTEMPTS) would wrap the retryer again.
func disableSDKRetries(o *s3.Options) {
	o.Retryer = aws.NopRetryer{}
	o.RetryMaxAttempts = 0
}

// Archiver copies committed telemetry batches to S3 as gzip JSON lines, one
// object per batch, on a single background worker. Archiving is best effort:
// failures are logged and counted, never reported to the ingest caller.
type Archiver struct {
	cfg     config.ArchiveConfig
	metrics *metrics.Metrics
	client  ObjectPutter

	jobs chan []models.TelemetryEvent

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	now          func() time.Time
	firstBackoff time.Duration
}

func New(cfg config.ArchiveConfig, m *metrics.Metrics, client ObjectPutter) *Archiver {
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = 256
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Archiver{
		cfg:          cfg,
		metrics:      m,
		client:       client,
		jobs:         make(chan []models.TelemetryEvent, queue),
		now:          time.Now,
		firstBackoff: 200 * time.Millisecond,
	}
}

// Start launches the upload worker.
func (a *Archiver) Start() {
	a.wg.Add(1)
	go a.uploadLoop()
}

// Submit queues a batch without blocking. It returns false when the queue is
// full or the archiver has been shut down.
func (a *Archiver) Submit(events []models.TelemetryEvent) bool {
	if len(events) == 0 {
		return true
	}

	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return false
	}

	select {
	case a.jobs <- events:
		return true
	default:
		atomic.AddInt64(&a.metrics.ArchiveErrorsTotal, 1)
		return false
	}
}

// Shutdown stops accepting batches and waits until the queued ones are
// uploaded or have exhausted their retries. Calling it twice is safe.
func (a *Archiver) Shutdown() {
	a.mu.Lock()
	if !a.closed {
		a.closed = true
		close(a.jobs)
	}
	a.mu.Unlock()
	a.wg.Wait()
}

func (a *Archiver) uploadLoop() {
	defer a.wg.Done()
	for events := range a.jobs {
		a.archive(context.Background(), events)
	}
	log.Info().Msg("archive worker exiting")
}

func (a *Archiver) archive(ctx context.Context, events []models.TelemetryEvent) {
	data, err := EncodeBatch(events)
	if err != nil {
		atomic.AddInt64(&a.metrics.ArchiveErrorsTotal, 1)
		log.Error().Err(err).Int("events", len(events)).Msg("failed to encode telemetry batch for archive")
		return
	}

	key := ObjectKey(a.cfg.Prefix, a.now(), uuid.New().String())
	if err := a.uploadWithRetry(ctx, key, data); err != nil {
		atomic.AddInt64(&a.metrics.ArchiveErrorsTotal, 1)
		log.Error().Err(err).Str("key", key).Int("events", len(events)).Msg("failed to archive telemetry batch")
		return
	}

	atomic.AddInt64(&a.metrics.ArchiveUploadsTotal, 1)
	log.Debug().Str("key", key).Int("events", len(events)).Msg("archived telemetry batch")
}

// uploadWithRetry makes up to cfg.Retries attempts with doubling backoff
// capped at 2s. Each attempt gets its own timeout.
func (a *Archiver) uploadWithRetry(ctx context.Context, key string, body []byte) error {
	var lastErr error
	backoff := a.firstBackoff

	for attempt := 1; attempt <= a.cfg.Retries; attempt++ {
		err := a.putObject(ctx, key, body)
		if err == nil {
			return nil
		}
		lastErr = err
		log.Warn().Err(err).Str("key", key).Int("attempt", attempt).Msg("archive upload failed")

		if attempt == a.cfg.Retries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
			backoff *= 2
			if backoff > 2*time.Second {
				backoff = 2 * time.Second
			}
		}
	}
	return lastErr
}

func (a *Archiver) putObject(ctx context.Context, key string, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(a.cfg.Bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(body),
		ContentLength:   aws.Int64(int64(len(body))),
		ContentType:     aws.String("application/x-ndjson"),
		ContentEncoding: aws.String("gzip"),
	})
	return err
}

// ObjectKey partitions archive objects by UTC date and hour.
func ObjectKey(prefix string, at time.Time, id string) string {
	at = at.UTC()
	name := fmt.Sprintf("dt=%s/hr=%s/%d-%s.jsonl.gz", at.Format("2006-01-02"), at.Format("15"), at.UnixMilli(), id)
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}

// EncodeBatch renders events as JSON lines and gzips them.
func EncodeBatch(events []models.TelemetryEvent) ([]byte, error) {
	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestSpeed)
	if err != nil {
		return nil, err
	}

	enc := json.NewEncoder(gz)
	for i := range events {
		if err := enc.Encode(&events[i]); err != nil {
			_ = gz.Close()
			return nil, fmt.Errorf("encode event %s: %w", events[i].EventID, err)
		}
	}

	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
