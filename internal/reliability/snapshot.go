// Package reliability backs the ledger up to S3-compatible storage and keeps
// the database healthy.
package reliability

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/askpay/forexsignals/internal/config"
	"github.com/askpay/forexsignals/internal/metrics"
	"github.com/askpay/forexsignals/internal/modules/ledger"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// ArchiveVersion is bumped whenever the archive layout changes
const ArchiveVersion = 1

const archiveTimeLayout = "2006-01-02-150405"

// Uploader is the subset of manager.Uploader used for backups
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// SnapshotSource provides a consistent copy of the ledger
type SnapshotSource interface {
	Snapshot() ledger.Snapshot
}

// Archive is the msgpack document stored in each backup.
// Amounts are decimal strings so no precision is lost.
type Archive struct {
	Version        int                   `msgpack:"version"`
	TakenAt        int64                 `msgpack:"taken_at"`
	Balance        string                `msgpack:"balance"`
	InitialBalance string                `msgpack:"initial_balance"`
	Drift          string                `msgpack:"drift"`
	Transactions   []ArchivedTransaction `msgpack:"transactions"`
}

// ArchivedTransaction is a ledger.Transaction in archive form
type ArchivedTransaction struct {
	ID            string `msgpack:"id"`
	Amount        string `msgpack:"amount"`
	Type          string `msgpack:"type"`
	Category      string `msgpack:"category"`
	Description   string `msgpack:"description"`
	Date          int64  `msgpack:"date"`
	SignalID      string `msgpack:"signal_id,omitempty"`
	Pair          string `msgpack:"pair,omitempty"`
	Direction     string `msgpack:"direction,omitempty"`
	EntryValue    string `msgpack:"entry_value,omitempty"`
	PayoutPercent string `msgpack:"payout_percent,omitempty"`
	Result        string `msgpack:"result,omitempty"`
}

// NewArchive converts a ledger snapshot
func NewArchive(snap ledger.Snapshot) Archive {
	archive := Archive{
		Version:        ArchiveVersion,
		TakenAt:        snap.TakenAt.Unix(),
		Balance:        snap.Balance.String(),
		InitialBalance: snap.InitialBalance.String(),
		Drift:          snap.Drift().String(),
		Transactions:   make([]ArchivedTransaction, 0, len(snap.Transactions)),
	}

	for _, tx := range snap.Transactions {
		at := ArchivedTransaction{
			ID:          tx.ID,
			Amount:      tx.Amount.String(),
			Type:        string(tx.Type),
			Category:    tx.Category,
			Description: tx.Description,
			Date:        tx.Date.UnixMilli(),
			SignalID:    tx.SignalID,
			Pair:        tx.Pair,
			Direction:   tx.Direction,
			Result:      string(tx.Result),
		}
		if tx.EntryValue != nil {
			at.EntryValue = tx.EntryValue.String()
		}
		if tx.PayoutPercent != nil {
			at.PayoutPercent = tx.PayoutPercent.String()
		}
		archive.Transactions = append(archive.Transactions, at)
	}

	return archive
}

// Snapshot converts the archive back into a ledger snapshot
func (a Archive) Snapshot() (ledger.Snapshot, error) {
	balance, err := decimal.NewFromString(a.Balance)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("invalid archived balance: %w", err)
	}
	initial, err := decimal.NewFromString(a.InitialBalance)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("invalid archived initial balance: %w", err)
	}

	snap := ledger.Snapshot{
		Balance:        balance,
		InitialBalance: initial,
		Transactions:   make([]ledger.Transaction, 0, len(a.Transactions)),
		TakenAt:        time.Unix(a.TakenAt, 0),
	}

	for _, at := range a.Transactions {
		amount, err := decimal.NewFromString(at.Amount)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("invalid amount for transaction %s: %w", at.ID, err)
		}
		tx := ledger.Transaction{
			ID:          at.ID,
			Amount:      amount,
			Type:        ledger.TransactionType(at.Type),
			Category:    at.Category,
			Description: at.Description,
			Date:        time.UnixMilli(at.Date),
			SignalID:    at.SignalID,
			Pair:        at.Pair,
			Direction:   at.Direction,
			Result:      ledger.Outcome(at.Result),
		}
		if at.EntryValue != "" {
			v, err := decimal.NewFromString(at.EntryValue)
			if err != nil {
				return ledger.Snapshot{}, fmt.Errorf("invalid entry value for transaction %s: %w", at.ID, err)
			}
			tx.EntryValue = &v
		}
		if at.PayoutPercent != "" {
			v, err := decimal.NewFromString(at.PayoutPercent)
			if err != nil {
				return ledger.Snapshot{}, fmt.Errorf("invalid payout for transaction %s: %w", at.ID, err)
			}
			tx.PayoutPercent = &v
		}
		snap.Transactions = append(snap.Transactions, tx)
	}

	return snap, nil
}

// Encode serialises a snapshot as gzipped msgpack
func Encode(snap ledger.Snapshot) ([]byte, error) {
	payload, err := msgpack.Marshal(NewArchive(snap))
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(payload); err != nil {
		return nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reverses Encode
func Decode(data []byte) (*Archive, error) {
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer gz.Close()

	payload, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot: %w", err)
	}

	var archive Archive
	if err := msgpack.Unmarshal(payload, &archive); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if archive.Version != ArchiveVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", archive.Version)
	}
	return &archive, nil
}

// newS3Client builds a client from the backup settings. A custom endpoint
// switches to path-style addressing for R2 and MinIO.
func newS3Client(ctx context.Context, cfg *config.BackupConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// NewS3Uploader builds an uploader from the backup settings
func NewS3Uploader(ctx context.Context, cfg *config.BackupConfig) (*manager.Uploader, error) {
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return manager.NewUploader(client), nil
}

// SnapshotService uploads ledger snapshots
type SnapshotService struct {
	source   SnapshotSource
	uploader Uploader
	bucket   string
	prefix   string
	metrics  *metrics.Registry
	log      zerolog.Logger
}

// NewSnapshotService creates a new snapshot backup service
func NewSnapshotService(
	source SnapshotSource,
	uploader Uploader,
	bucket, prefix string,
	m *metrics.Registry,
	log zerolog.Logger,
) *SnapshotService {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &SnapshotService{
		source:   source,
		uploader: uploader,
		bucket:   bucket,
		prefix:   prefix,
		metrics:  m,
		log:      log.With().Str("service", "snapshot_backup").Logger(),
	}
}

// Backup encodes the current ledger state and uploads it, returning the object key
func (s *SnapshotService) Backup(ctx context.Context) (string, error) {
	startTime := time.Now()
	snap := s.source.Snapshot()

	data, err := Encode(snap)
	if err != nil {
		s.record("failure")
		return "", err
	}

	key := s.prefix + fmt.Sprintf("ledger-%s.msgpack.gz", snap.TakenAt.UTC().Format(archiveTimeLayout))
	_, err = s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:          aws.String(s.bucket),
		Key:             aws.String(key),
		Body:            bytes.NewReader(data),
		ContentType:     aws.String("application/x-msgpack"),
		ContentEncoding: aws.String("gzip"),
	})
	if err != nil {
		s.record("failure")
		return "", fmt.Errorf("failed to upload snapshot: %w", err)
	}

	s.record("success")
	s.log.Info().
		Str("key", key).
		Int("transactions", len(snap.Transactions)).
		Int("size_bytes", len(data)).
		Dur("duration_ms", time.Since(startTime)).
		Msg("Ledger snapshot uploaded")

	return key, nil
}

// Name returns the job name for the scheduler
func (s *SnapshotService) Name() string {
	return "snapshot_backup"
}

// Run uploads a snapshot with a bounded deadline
func (s *SnapshotService) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	_, err := s.Backup(ctx)
	return err
}

func (s *SnapshotService) record(status string) {
	if s.metrics != nil {
		s.metrics.BackupsTotal.WithLabelValues(status).Inc()
	}
}
