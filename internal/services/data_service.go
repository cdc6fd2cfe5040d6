package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"moneytrack/internal/backup"
	"moneytrack/internal/core"
	"moneytrack/internal/importexport"
	"moneytrack/internal/storage"
)

var (
	ErrNoRows        = errors.New("no valid rows to import")
	ErrNotSQLiteFile = errors.New("file is not a SQLite database")
)

var sqliteHeader = []byte("SQLite format 3\x00")

// ImportSummary is the outcome of a file import.
type ImportSummary struct {
	Message string `json:"message"`
	storage.ImportResult
}

// DataService moves ledger data in and out of files.
type DataService struct {
	storage   *storage.SQLiteRepository
	backups   *backup.Manager
	analytics *AnalyticsService
	now       func() time.Time
}

// NewDataService wires the service. backups and analytics may be nil; without
// a backup manager database imports restore without a safety copy.
func NewDataService(storage *storage.SQLiteRepository, backups *backup.Manager, analytics *AnalyticsService) *DataService {
	return &DataService{storage: storage, backups: backups, analytics: analytics, now: time.Now}
}

func (s *DataService) invalidate() {
	if s.analytics != nil {
		s.analytics.Invalidate()
	}
}

// ImportCSV reads rows keyed by account name, creating missing accounts and
// linking detected transfers.
func (s *DataService) ImportCSV(ctx context.Context, r io.Reader) (ImportSummary, error) {
	parsed, err := importexport.ParseCSV(r)
	if err != nil {
		return ImportSummary{}, err
	}
	return s.importRows(ctx, parsed, "CSV")
}

// ImportOFX reads an OFX or QFX statement into the named account.
func (s *DataService) ImportOFX(ctx context.Context, r io.Reader, account string) (ImportSummary, error) {
	parsed, err := importexport.ParseOFX(r, account)
	if err != nil {
		return ImportSummary{}, err
	}
	return s.importRows(ctx, parsed, "OFX")
}

func (s *DataService) importRows(ctx context.Context, parsed importexport.ParseResult, format string) (ImportSummary, error) {
	if len(parsed.Rows) == 0 {
		return ImportSummary{}, fmt.Errorf("%w (%d skipped)", ErrNoRows, parsed.Skipped)
	}
	res, err := s.storage.ImportRows(ctx, parsed.Rows)
	if err != nil {
		return ImportSummary{}, fmt.Errorf("import %s rows: %w", format, err)
	}
	res.Skipped += parsed.Skipped
	s.invalidate()

	msg := fmt.Sprintf("Successfully imported %d transactions", res.Imported)
	if res.Skipped > 0 {
		msg += fmt.Sprintf(" (%d skipped)", res.Skipped)
	}
	return ImportSummary{Message: msg, ImportResult: res}, nil
}

func (s *DataService) exportData(ctx context.Context) ([]core.Transaction, []core.Account, error) {
	txs, err := s.storage.ListAllTransactions(ctx)
	if err != nil {
		return nil, nil, err
	}
	accounts, err := s.storage.ListAccounts(ctx)
	if err != nil {
		return nil, nil, err
	}
	return txs, accounts, nil
}

func (s *DataService) ExportCSV(ctx context.Context, w io.Writer) error {
	txs, accounts, err := s.exportData(ctx)
	if err != nil {
		return fmt.Errorf("export csv: %w", err)
	}
	names := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		names[a.ID] = a.Name
	}
	return importexport.WriteCSV(w, txs, names)
}

func (s *DataService) ExportXLSX(ctx context.Context, w io.Writer) error {
	txs, accounts, err := s.exportData(ctx)
	if err != nil {
		return fmt.Errorf("export xlsx: %w", err)
	}
	return importexport.WriteXLSX(w, txs, accounts)
}

// ExportName is the download filename of a database export.
func (s *DataService) ExportName() string {
	return backup.DefaultPrefix + "_" + s.now().Format("20060102_150405") + ".db"
}

// ExportDB streams a consistent snapshot of the database to w.
func (s *DataService) ExportDB(ctx context.Context, w io.Writer) error {
	dir, err := os.MkdirTemp("", "moneytrack-export-")
	if err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "export.db")
	if err := s.storage.BackupTo(ctx, path); err != nil {
		return fmt.Errorf("export database: %w", err)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open export: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// ImportDB replaces the database with an uploaded snapshot. When a backup
// manager is configured the current state is saved first and returned.
func (s *DataService) ImportDB(ctx context.Context, r io.Reader) (*backup.Info, error) {
	dir, err := os.MkdirTemp("", "moneytrack-import-")
	if err != nil {
		return nil, fmt.Errorf("create import directory: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "upload.db")
	if err := writeSnapshot(path, r); err != nil {
		return nil, err
	}

	var pre *backup.Info
	if s.backups != nil {
		info, err := s.backups.RestoreFile(ctx, path)
		if err != nil {
			return nil, err
		}
		pre = &info
	} else if err := s.storage.RestoreFrom(ctx, path); err != nil {
		return nil, fmt.Errorf("restore database: %w", err)
	}
	s.invalidate()
	slog.InfoContext(ctx, "Database imported from upload")
	return pre, nil
}

func writeSnapshot(path string, r io.Reader) error {
	header := make([]byte, len(sqliteHeader))
	if _, err := io.ReadFull(r, header); err != nil || !bytes.Equal(header, sqliteHeader) {
		return ErrNotSQLiteFile
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, io.MultiReader(bytes.NewReader(header), r)); err != nil {
		f.Close()
		return fmt.Errorf("write upload file: %w", err)
	}
	return f.Close()
}
