package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytrack/internal/core"
)

func TestBackupAndRestore(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	checking := mustAccount(t, repo, "Checking", core.Checking, 5000)
	savings := mustAccount(t, repo, "Savings", core.Savings, 0)
	_, _, err := repo.CreateTransfer(ctx, core.Transfer{
		FromAccountID: checking.ID, ToAccountID: savings.ID, Amount: core.Cents(1000), Date: core.NewDate(2025, 6, 1),
	})
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "snap", "backup.db")
	require.NoError(t, repo.BackupTo(ctx, dest))
	info, err := os.Stat(dest)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.ErrorIs(t, repo.BackupTo(ctx, dest), os.ErrExist)

	// Diverge from the snapshot, then restore it.
	_, err = repo.CreateTransaction(ctx, core.Transaction{
		AccountID: checking.ID, Amount: core.Cents(-99), Date: core.NewDate(2025, 6, 2), Type: core.TypeExpense, Payee: "Late",
	})
	require.NoError(t, err)
	mustAccount(t, repo, "Extra", core.Credit, 0)

	require.NoError(t, repo.RestoreFrom(ctx, dest))

	accounts, err := repo.ListAccounts(ctx)
	require.NoError(t, err)
	assert.Len(t, accounts, 2)
	assert.Equal(t, int64(4000), balance(t, repo, checking.ID))

	txs, err := repo.ListAllTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	// The repository keeps working with foreign keys enforced.
	_, err = repo.CreateTransaction(ctx, core.Transaction{
		AccountID: 999, Amount: core.Cents(-1), Date: core.NewDate(2025, 6, 3), Type: core.TypeExpense,
	})
	assert.Error(t, err)
}

func TestRestoreMissingSnapshot(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.RestoreFrom(context.Background(), filepath.Join(t.TempDir(), "missing.db"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSchemaVersion(t *testing.T) {
	repo := newTestRepo(t)
	v, err := repo.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), v)
}

func TestStats(t *testing.T) {
	repo := newTestRepo(t)
	st, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, repo.Path(), st.Path)
	assert.Positive(t, st.SizeBytes)
	assert.Equal(t, int64(3), st.SchemaVersion)
}
