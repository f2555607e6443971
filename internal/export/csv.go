// Package export writes per-account CSV snapshots of the transaction log.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"ledger/internal/core"
)

var header = []string{"id", "name", "amount", "type", "created_at"}

// FileStore keeps one CSV file per account under dir.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Path returns the export file for an account.
func (s *FileStore) Path(accountID int64) string {
	return filepath.Join(s.dir, fmt.Sprintf("account_%d.csv", accountID))
}

// Write replaces the account's export with txs, in the order given. The file
// is written to a temporary name and renamed so readers never see a partial
// export.
func (s *FileStore) Write(ctx context.Context, accountID int64, txs []core.Transaction) (err error) {
	tmp, err := os.CreateTemp(s.dir, fmt.Sprintf(".account_%d-*.csv", accountID))
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write export header: %w", err)
	}
	for _, tx := range txs {
		if err := ctx.Err(); err != nil {
			return err
		}
		record := []string{
			strconv.FormatInt(tx.ID, 10),
			tx.Name,
			tx.Amount.String(),
			tx.Type.String(),
			tx.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write export row %d: %w", tx.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path(accountID)); err != nil {
		return fmt.Errorf("publish export file: %w", err)
	}

	slog.InfoContext(ctx, "Export written",
		"account_id", accountID,
		"transactions", len(txs),
		"path", s.Path(accountID))
	return nil
}

// Read returns the raw CSV content of the account's export.
func (s *FileStore) Read(accountID int64) (string, error) {
	data, err := os.ReadFile(s.Path(accountID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%w: export for account %d", core.ErrNotFound, accountID)
		}
		return "", fmt.Errorf("%w: read export: %w", core.ErrStorageFailure, err)
	}
	return string(data), nil
}

// Remove deletes the account's export. A missing export is not an error.
func (s *FileStore) Remove(accountID int64) error {
	if err := os.Remove(s.Path(accountID)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove export: %w", err)
	}
	return nil
}
