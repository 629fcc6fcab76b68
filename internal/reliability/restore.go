package reliability

import (
	"context"
	"fmt"
	"io"

	"github.com/askpay/forexsignals/internal/config"
	"github.com/askpay/forexsignals/internal/modules/ledger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Downloader is the subset of manager.Downloader used for restores
type Downloader interface {
	Download(ctx context.Context, w io.WriterAt, input *s3.GetObjectInput, opts ...func(*manager.Downloader)) (int64, error)
}

// Restorer accepts a full ledger state
type Restorer interface {
	Restore(snap ledger.Snapshot) error
}

// NewS3Downloader builds a downloader from the backup settings
func NewS3Downloader(ctx context.Context, cfg *config.BackupConfig) (*manager.Downloader, error) {
	client, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return manager.NewDownloader(client), nil
}

// Fetch downloads one archive object
func Fetch(ctx context.Context, d Downloader, bucket, key string) ([]byte, error) {
	buf := manager.NewWriteAtBuffer(nil)
	if _, err := d.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return nil, fmt.Errorf("failed to download snapshot %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

// RestoreLedger decodes an archive and replaces the ledger state with it.
// Nothing is changed when the archive cannot be decoded.
func RestoreLedger(target Restorer, data []byte) (ledger.Snapshot, error) {
	archive, err := Decode(data)
	if err != nil {
		return ledger.Snapshot{}, err
	}
	snap, err := archive.Snapshot()
	if err != nil {
		return ledger.Snapshot{}, err
	}
	if err := target.Restore(snap); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to restore ledger: %w", err)
	}
	return snap, nil
}
