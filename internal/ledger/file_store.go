package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alanyoungcy/collectibles/internal/domain"
)

const (
	DefaultPath       = "data/ofertas.json"
	DefaultBackupKey  = "ledger/offers.json"
	ledgerDirMode     = 0o755
	ledgerFileMode    = 0o644
	tempFilePattern   = ".ofertas-*.json.tmp"
	backupContentType = "application/json"
)

var errUnknownShape = errors.New("unrecognized ledger file shape")

// ledgerFile is the shape written to disk.
type ledgerFile struct {
	Offers []domain.Offer `json:"offers"`
}

// FileStoreOptions configures the optional sources and sinks of a FileStore.
type FileStoreOptions struct {
	// LegacyPath is copied into place when the ledger file does not exist.
	LegacyPath string
	// Backup receives a copy of every saved snapshot. Optional.
	Backup domain.BlobWriter
	// Restore is consulted when neither the ledger nor the legacy file exist.
	Restore domain.BlobReader
	// BackupKey is the object key used for Backup and Restore.
	BackupKey string
}

// FileStore persists the ledger as a JSON document. Writes are atomic: the
// snapshot goes to a temp file in the same directory which is then renamed
// over the ledger file.
type FileStore struct {
	path   string
	opts   FileStoreOptions
	logger *slog.Logger
}

// NewFileStore creates a FileStore for path.
func NewFileStore(path string, opts FileStoreOptions, logger *slog.Logger) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	if opts.BackupKey == "" {
		opts.BackupKey = DefaultBackupKey
	}
	return &FileStore{
		path:   path,
		opts:   opts,
		logger: logger.With(slog.String("component", "ledger_file")),
	}
}

// Path returns the ledger file location.
func (f *FileStore) Path() string { return f.path }

// Load reads the ledger file. A missing file is seeded from the legacy path
// or the backup when available and is otherwise an empty ledger. Both
// {"offers":[...]} and a bare array are accepted.
func (f *FileStore) Load(ctx context.Context) ([]domain.Offer, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		data, err = f.seed(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("ledger: read %s: %w", f.path, err)
	}

	offers, err := decodeOffers(data)
	if err != nil {
		return nil, fmt.Errorf("ledger: decode %s: %w", f.path, err)
	}
	return offers, nil
}

// seed provides initial contents when the ledger file is missing. It returns
// nil data when there is nothing to seed from.
func (f *FileStore) seed(ctx context.Context) ([]byte, error) {
	if f.opts.LegacyPath != "" {
		data, err := os.ReadFile(f.opts.LegacyPath)
		switch {
		case err == nil:
			if err := writeAtomic(f.path, data); err != nil {
				return nil, fmt.Errorf("migrate legacy file: %w", err)
			}
			f.logger.InfoContext(ctx, "ledger: migrated legacy file",
				slog.String("from", f.opts.LegacyPath),
				slog.String("to", f.path),
			)
			return data, nil
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("read legacy file: %w", err)
		}
	}

	if f.opts.Restore == nil {
		return nil, nil
	}
	found, err := f.opts.Restore.Exists(ctx, f.opts.BackupKey)
	if err != nil {
		return nil, fmt.Errorf("check backup %s: %w", f.opts.BackupKey, err)
	}
	if !found {
		f.logger.InfoContext(ctx, "ledger: no backup to restore",
			slog.String("key", f.opts.BackupKey),
		)
		return nil, nil
	}
	rc, err := f.opts.Restore.Get(ctx, f.opts.BackupKey)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch backup %s: %w", f.opts.BackupKey, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read backup %s: %w", f.opts.BackupKey, err)
	}
	if err := writeAtomic(f.path, data); err != nil {
		return nil, fmt.Errorf("restore backup: %w", err)
	}
	f.logger.InfoContext(ctx, "ledger: restored from backup",
		slog.String("key", f.opts.BackupKey),
		slog.Int("bytes", len(data)),
	)
	return data, nil
}

// Save writes offers as a full snapshot and then uploads a backup copy. A
// failed backup is logged and does not fail the save.
func (f *FileStore) Save(ctx context.Context, offers []domain.Offer) error {
	if offers == nil {
		offers = []domain.Offer{}
	}
	data, err := json.MarshalIndent(ledgerFile{Offers: offers}, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: encode: %w", err)
	}
	if err := writeAtomic(f.path, data); err != nil {
		return fmt.Errorf("ledger: write %s: %w", f.path, err)
	}

	if f.opts.Backup != nil {
		err := f.opts.Backup.Put(ctx, f.opts.BackupKey, bytes.NewReader(data), backupContentType)
		if err != nil {
			f.logger.WarnContext(ctx, "ledger: backup upload failed",
				slog.String("key", f.opts.BackupKey),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// decodeOffers accepts the wrapped object shape or a bare array. Empty input
// is an empty ledger; anything else is an error so a damaged file is never
// silently replaced by an empty one.
func decodeOffers(data []byte) ([]domain.Offer, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, nil
	}

	switch data[0] {
	case '{':
		var wrapped struct {
			Offers *[]domain.Offer `json:"offers"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil {
			return nil, err
		}
		if wrapped.Offers == nil {
			return nil, errUnknownShape
		}
		return *wrapped.Offers, nil
	case '[':
		var offers []domain.Offer
		if err := json.Unmarshal(data, &offers); err != nil {
			return nil, err
		}
		return offers, nil
	default:
		return nil, errUnknownShape
	}
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, ledgerDirMode); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tempFile, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tempFile.Chmod(ledgerFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace file: %w", err)
	}
	cleanup = false
	return nil
}
