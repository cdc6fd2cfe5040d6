package services

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"moneytrack/internal/analytics"
	"moneytrack/internal/backup"
	"moneytrack/internal/core"
	"moneytrack/internal/storage"
)

type published struct {
	id int64
	op string
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []published
	fail     error
	closed   bool
}

func (p *fakePublisher) PublishTransactionSync(_ context.Context, id int64, op string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.messages = append(p.messages, published{id, op})
	return nil
}

func (p *fakePublisher) Close() error {
	p.closed = true
	return nil
}

func (p *fakePublisher) ops() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.messages))
	for i, m := range p.messages {
		out[i] = m.op
	}
	return out
}

func newTestRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func mustAccount(t *testing.T, repo *storage.SQLiteRepository, name string, typ core.AccountType) core.Account {
	t.Helper()
	a, err := repo.CreateAccount(context.Background(), core.Account{Name: name, Type: typ})
	require.NoError(t, err)
	return a
}

func TestTransactionService(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	pub := &fakePublisher{}
	svc := NewTransactionService(repo, pub, nil)

	checking, err := svc.CreateAccount(ctx, core.Account{Name: "Checking", Type: core.Checking})
	require.NoError(t, err)
	savings := mustAccount(t, repo, "Savings", core.Savings)

	tx, err := svc.CreateTransaction(ctx, core.Transaction{
		AccountID: checking.ID, Amount: core.Cents(-1200), Date: core.NewDate(2025, 4, 2), Type: core.TypeExpense, Payee: "Cafe",
	})
	require.NoError(t, err)
	tx.Amount = core.Cents(-1500)
	_, err = svc.UpdateTransaction(ctx, tx)
	require.NoError(t, err)
	require.NoError(t, svc.DeleteTransaction(ctx, tx.ID))

	_, legs, err := svc.CreateTransfer(ctx, core.Transfer{
		FromAccountID: checking.ID, ToAccountID: savings.ID, Amount: core.Cents(5000), Date: core.NewDate(2025, 4, 3),
	})
	require.NoError(t, err)
	require.Len(t, legs, 2)
	require.NoError(t, svc.DeleteTransaction(ctx, legs[1].ID))

	assert.Equal(t, []string{"upsert", "upsert", "delete", "upsert", "upsert", "delete", "delete"}, pub.ops())

	_, err = svc.CreateTransaction(ctx, core.Transaction{AccountID: checking.ID, Date: core.NewDate(2025, 4, 4), Type: core.TypeExpense})
	assert.ErrorIs(t, err, core.ErrInvalidAmount)

	require.NoError(t, svc.Close())
	assert.True(t, pub.closed)
}

func TestTransactionServicePublishFailure(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewTransactionService(repo, &fakePublisher{fail: errors.New("broker down")}, nil)
	a := mustAccount(t, repo, "Checking", core.Checking)

	created, err := svc.CreateTransaction(ctx, core.Transaction{
		AccountID: a.ID, Amount: core.Cents(900), Date: core.NewDate(2025, 4, 2), Type: core.TypeIncome,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	_, err = NewTransactionService(repo, nil, nil).CreateTransaction(ctx, core.Transaction{
		AccountID: a.ID, Amount: core.Cents(100), Date: core.NewDate(2025, 4, 3), Type: core.TypeIncome,
	})
	assert.NoError(t, err)
}

func TestAnalyticsService(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	an := NewAnalyticsService(repo, time.Minute)
	svc := NewTransactionService(repo, nil, an)
	a := mustAccount(t, repo, "Checking", core.Checking)

	add := func(cents int64, payee, category, project string) {
		t.Helper()
		_, err := svc.CreateTransaction(ctx, core.Transaction{
			AccountID: a.ID, Amount: core.Cents(cents), Date: core.NewDate(2025, 5, 10),
			Type: core.TypeForAmount(core.Cents(cents)), Payee: payee, Category: category, Project: project,
		})
		require.NoError(t, err)
	}
	add(-2000, "Grocer", "Food", "")
	add(-3000, "Grocer", "Food", "Kitchen")
	add(-500, "Kiosk", "", "Kitchen")

	f := analytics.Filters{DateFrom: core.NewDate(2025, 5, 1), DateTo: core.NewDate(2025, 5, 31)}
	r, err := an.Report(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, []analytics.CategoryTotal{
		{Category: "Food", Total: core.Cents(5000)},
		{Category: core.Uncategorized, Total: core.Cents(500)},
	}, r.Categories)
	assert.Equal(t, 1, an.Cache().Size())

	// Writes through the transaction service drop the cached report.
	add(10000, "Employer", "Salary", "")
	assert.Equal(t, 0, an.Cache().Size())
	r, err = an.Report(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(10000), r.Stats.MonthlyIncome)

	top, err := an.TopPayees(ctx, f, 1)
	require.NoError(t, err)
	assert.Equal(t, []analytics.PayeeTotal{{Payee: "Grocer", Total: core.Cents(5000)}}, top)

	projects, err := repo.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	summary, err := an.ProjectSummary(ctx, projects[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.TransactionCount)
	assert.Equal(t, core.Cents(3500), summary.TotalSpent)

	_, err = an.ProjectSummary(ctx, 999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestParseFilters(t *testing.T) {
	f, err := ParseFilters("2025-01-01", "", []string{"checking", "", "Savings"})
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2025, 1, 1), f.DateFrom)
	assert.True(t, f.DateTo.IsZero())
	assert.True(t, f.AccountTypes.Has(core.Savings))
	assert.False(t, f.AccountTypes.Has(core.Credit))

	_, err = ParseFilters("01/02/2025", "", nil)
	assert.ErrorIs(t, err, core.ErrInvalidDate)
	_, err = ParseFilters("", "", []string{"gold"})
	assert.ErrorIs(t, err, core.ErrInvalidAccountType)
	_, err = ParseFilters("1900-01-01", "2025-01-01", nil)
	assert.ErrorIs(t, err, analytics.ErrWindowTooLarge)
}

func TestRecurringProcessor(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	pub := &fakePublisher{}
	proc := NewRecurringProcessor(repo, nil, pub, nil)
	checking := mustAccount(t, repo, "Checking", core.Checking)
	savings := mustAccount(t, repo, "Savings", core.Savings)

	rent, err := repo.CreateRecurring(ctx, core.RecurringTemplate{
		AccountID: checking.ID, Type: core.TypeExpense, Amount: core.Cents(10000),
		Frequency: core.Monthly, NextDate: core.NewDate(2025, 1, 31), Payee: "Landlord", Active: true,
	})
	require.NoError(t, err)
	_, err = repo.CreateRecurring(ctx, core.RecurringTemplate{
		AccountID: checking.ID, TransferAccountID: savings.ID, Type: core.TypeTransfer, Amount: core.Cents(2500),
		Frequency: core.Monthly, NextDate: core.NewDate(2025, 3, 1), Active: true,
	})
	require.NoError(t, err)
	old, err := repo.CreateRecurring(ctx, core.RecurringTemplate{
		AccountID: checking.ID, Type: core.TypeExpense, Amount: core.Cents(100),
		Frequency: core.Weekly, NextDate: core.NewDate(2024, 1, 1), EndDate: core.NewDate(2024, 2, 1), Active: true,
	})
	require.NoError(t, err)

	today := core.NewDate(2025, 3, 31)
	report, err := proc.ProcessDue(ctx, today)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, 4, report.Processed)
	assert.Equal(t, 2, report.Templates)
	assert.Equal(t, 5, report.Transactions)
	assert.Equal(t, []int64{old.ID}, report.Expired)
	assert.Empty(t, report.Retry)
	assert.Len(t, pub.ops(), 5)

	txs, err := repo.ListTransactions(ctx, storage.TransactionFilter{Payees: []string{"Landlord"}})
	require.NoError(t, err)
	var dates []string
	for _, tx := range txs {
		dates = append(dates, tx.Date.String())
	}
	assert.Equal(t, []string{"2025-03-31", "2025-02-28", "2025-01-31"}, dates)

	got, err := repo.GetRecurring(ctx, rent.ID)
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2025, 4, 30), got.NextDate)
	expired, err := repo.GetRecurring(ctx, old.ID)
	require.NoError(t, err)
	assert.False(t, expired.Active)

	again, err := proc.ProcessDue(ctx, today)
	require.NoError(t, err)
	assert.Zero(t, again.Transactions)
	assert.Len(t, pub.ops(), 5)

	acc, err := repo.GetAccount(ctx, savings.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(2500), acc.Balance)
}

func TestRecurringScheduler(t *testing.T) {
	repo := newTestRepo(t)
	proc := NewRecurringProcessor(repo, nil, nil, nil)
	sched := NewRecurringScheduler(proc, RecurringSchedulerConfig{
		Interval: time.Hour,
		Today:    func() core.Date { return core.NewDate(2025, 6, 1) },
	})
	assert.False(t, sched.IsRunning())

	ctx := context.Background()
	require.NoError(t, sched.Start(ctx))
	assert.True(t, sched.IsRunning())
	assert.Error(t, sched.Start(ctx))

	require.Eventually(t, func() bool {
		return sched.LastReport().Date.Equal(core.NewDate(2025, 6, 1))
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, sched.Stop(ctx))
	assert.False(t, sched.IsRunning())
	assert.NoError(t, sched.Stop(ctx))
}

func TestDefaultRecurringSchedulerConfig(t *testing.T) {
	cfg := DefaultRecurringSchedulerConfig()
	assert.Equal(t, time.Hour, cfg.Interval)
	assert.NotNil(t, cfg.Today)

	s := NewRecurringScheduler(nil, RecurringSchedulerConfig{})
	assert.Equal(t, time.Hour, s.config.Interval)
}

func TestDataServiceCSV(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewDataService(repo, nil, nil)

	input := "Account,Date,Payee,Notes,Category,Amount\n" +
		"Checking,2025-02-01,Savings,,,-100.00\n" +
		"Savings,2025-02-01,Checking,,,100.00\n" +
		"Checking,2025-02-02,Grocer,,Food,-20.00\n" +
		"Checking,2025-02-03,Nobody,,,0\n"
	res, err := svc.ImportCSV(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 1, res.Transfers)
	assert.Equal(t, 2, res.AccountsCreated)
	assert.Equal(t, "Successfully imported 3 transactions (1 skipped)", res.Message)

	var out bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Account,Date,Payee,Notes,Category,Amount,Project", lines[0])
	assert.Contains(t, out.String(), "Checking,2025-02-02,Grocer,,Food,-20.00,")

	out.Reset()
	require.NoError(t, svc.ExportXLSX(ctx, &out))
	assert.True(t, bytes.HasPrefix(out.Bytes(), []byte("PK")))

	_, err = svc.ImportCSV(ctx, strings.NewReader("Account,Date,Amount\n,,\n"))
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestDataServiceDatabase(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	mgr, err := backup.NewManager(backup.Config{Dir: filepath.Join(t.TempDir(), "backups"), MaxBackups: 3}, repo, nil)
	require.NoError(t, err)
	svc := NewDataService(repo, mgr, nil)
	mustAccount(t, repo, "Checking", core.Checking)

	var snapshot bytes.Buffer
	require.NoError(t, svc.ExportDB(ctx, &snapshot))
	assert.True(t, bytes.HasPrefix(snapshot.Bytes(), sqliteHeader))
	assert.Regexp(t, `^moneytrack_backup_\d{8}_\d{6}\.db$`, svc.ExportName())

	mustAccount(t, repo, "Extra", core.Savings)
	pre, err := svc.ImportDB(ctx, bytes.NewReader(snapshot.Bytes()))
	require.NoError(t, err)
	require.NotNil(t, pre)
	assert.True(t, strings.HasPrefix(pre.Filename, "pre_restore_"))

	accounts, err := repo.ListAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Checking", accounts[0].Name)

	_, err = svc.ImportDB(ctx, strings.NewReader("definitely not sqlite"))
	assert.ErrorIs(t, err, ErrNotSQLiteFile)
}
