package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"moneytrack/internal/core"

	_ "modernc.org/sqlite"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAccountInUse  = errors.New("account is referenced by transactions or templates")
	ErrStaleTemplate = errors.New("template changed since it was read")
	ErrTransferLeg   = errors.New("transaction is a transfer leg")
	ErrDuplicateName = errors.New("name already exists")
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	path    string
}

// DSN builds the modernc connection string with the pragmas every
// connection needs.
func DSN(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		path:    dbPath,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Path returns the database file path.
func (r *SQLiteRepository) Path() string {
	return r.path
}

// Ping checks the connection, used by readiness checks.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) withTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// notFound maps sql.ErrNoRows to ErrNotFound.
func notFound(err error, what string, id any) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %v: %w", what, id, ErrNotFound)
	}
	return err
}

func mapConstraint(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %v", ErrDuplicateName, err)
	}
	return err
}

func expectRow(n int64, err error, what string, id int64) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, ErrNotFound)
	}
	return nil
}

// Accounts

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	var created Account
	err := r.withTx(ctx, func(q *Queries) error {
		var err error
		created, err = q.CreateAccount(ctx, CreateAccountParams{
			Name:         strings.TrimSpace(a.Name),
			Type:         string(a.Type),
			BalanceCents: a.Balance.Cents,
		})
		if err != nil {
			return fmt.Errorf("create account: %w", mapConstraint(err))
		}
		return q.UpsertPayee(ctx, created.Name, nullInt64(created.ID))
	})
	if err != nil {
		return core.Account{}, err
	}
	slog.InfoContext(ctx, "Account created", "account_id", created.ID, "name", created.Name, "type", created.Type)
	return created.toCore(), nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id int64) (core.Account, error) {
	a, err := r.queries.GetAccount(ctx, id)
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", notFound(err, "account", id))
	}
	return a.toCore(), nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context) ([]core.Account, error) {
	rows, err := r.queries.ListAccounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	out := make([]core.Account, 0, len(rows))
	for _, a := range rows {
		out = append(out, a.toCore())
	}
	return out, nil
}

// UpdateAccount changes name, type and balance. A balance edit is a manual
// correction and does not create a transaction. A rename also renames the
// account's payee and the counterpart legs of its transfers, and queues the
// affected rows for mirroring again.
func (r *SQLiteRepository) UpdateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	name := strings.TrimSpace(a.Name)
	err := r.withTx(ctx, func(q *Queries) error {
		old, err := q.GetAccount(ctx, a.ID)
		if err != nil {
			return notFound(err, "account", a.ID)
		}
		n, err := q.UpdateAccount(ctx, UpdateAccountParams{
			ID:           a.ID,
			Name:         name,
			Type:         string(a.Type),
			BalanceCents: a.Balance.Cents,
		})
		if err := expectRow(n, mapConstraint(err), "account", a.ID); err != nil {
			return err
		}
		if old.Name == name {
			return nil
		}
		return renameAccountRefs(ctx, q, a.ID, name)
	})
	if err != nil {
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	return r.GetAccount(ctx, a.ID)
}

func renameAccountRefs(ctx context.Context, q *Queries, id int64, name string) error {
	if err := q.DeleteUnlinkedPayeeByName(ctx, name); err != nil {
		return fmt.Errorf("free payee name: %w", err)
	}
	n, err := q.RenameAccountPayee(ctx, name, id)
	if err != nil {
		return fmt.Errorf("rename account payee: %w", mapConstraint(err))
	}
	if n == 0 {
		if err := q.UpsertPayee(ctx, name, nullInt64(id)); err != nil {
			return fmt.Errorf("create account payee: %w", err)
		}
	}
	legs, err := q.RenameCounterpartLegs(ctx, name, id)
	if err != nil {
		return fmt.Errorf("rename transfer legs: %w", err)
	}
	if err := q.ResetAccountMirror(ctx, id); err != nil {
		return fmt.Errorf("reset account mirror: %w", err)
	}
	slog.InfoContext(ctx, "Account renamed", "account_id", id, "name", name, "legs_renamed", legs)
	return nil
}

func (r *SQLiteRepository) DeleteAccount(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(q *Queries) error {
		refs, err := q.CountAccountReferences(ctx, id)
		if err != nil {
			return fmt.Errorf("count account references: %w", err)
		}
		if refs > 0 {
			return fmt.Errorf("delete account %d: %w", id, ErrAccountInUse)
		}
		n, err := q.DeleteAccount(ctx, id)
		if err := expectRow(n, err, "account", id); err != nil {
			return fmt.Errorf("delete account: %w", err)
		}
		return nil
	})
}

// Categories, payees and projects

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, c := range rows {
		out = append(out, core.Category{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Category{}, core.ErrEmptyName
	}
	if err := r.queries.UpsertCategory(ctx, name); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	c, err := r.queries.GetCategoryByName(ctx, name)
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return core.Category{ID: c.ID, Name: c.Name}, nil
}

// DeleteCategory removes the lookup entry; transactions keep their label.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteCategory(ctx, id)
	if err := expectRow(n, err, "category", id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ListPayees(ctx context.Context) ([]core.Payee, error) {
	rows, err := r.queries.ListPayees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payees: %w", err)
	}
	out := make([]core.Payee, 0, len(rows))
	for _, p := range rows {
		out = append(out, core.Payee{ID: p.ID, Name: p.Name, AccountID: p.AccountID.Int64})
	}
	return out, nil
}

func (r *SQLiteRepository) CreatePayee(ctx context.Context, name string) (core.Payee, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return core.Payee{}, core.ErrEmptyName
	}
	if err := r.queries.UpsertPayee(ctx, name, sql.NullInt64{}); err != nil {
		return core.Payee{}, fmt.Errorf("create payee: %w", err)
	}
	p, err := r.queries.GetPayeeByName(ctx, name)
	if err != nil {
		return core.Payee{}, fmt.Errorf("get payee: %w", err)
	}
	return core.Payee{ID: p.ID, Name: p.Name, AccountID: p.AccountID.Int64}, nil
}

func (r *SQLiteRepository) DeletePayee(ctx context.Context, id int64) error {
	n, err := r.queries.DeletePayee(ctx, id)
	if err := expectRow(n, err, "payee", id); err != nil {
		return fmt.Errorf("delete payee: %w", err)
	}
	return nil
}

// LookupNames returns category and payee names, used to prime the AI prompt.
func (r *SQLiteRepository) LookupNames(ctx context.Context) (categories, payees []string, err error) {
	cats, err := r.queries.ListCategories(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list categories: %w", err)
	}
	pays, err := r.queries.ListPayees(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list payees: %w", err)
	}
	for _, c := range cats {
		categories = append(categories, c.Name)
	}
	for _, p := range pays {
		payees = append(payees, p.Name)
	}
	return categories, payees, nil
}

func projectParams(p core.Project) CreateProjectParams {
	return CreateProjectParams{
		Name:        strings.TrimSpace(p.Name),
		Description: nullString(p.Description),
		Category:    nullString(p.Category),
		Notes:       nullString(p.Notes),
	}
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	created, err := r.queries.CreateProject(ctx, projectParams(p))
	if err != nil {
		return core.Project{}, fmt.Errorf("create project: %w", mapConstraint(err))
	}
	return created.toCore(), nil
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id int64) (core.Project, error) {
	p, err := r.queries.GetProject(ctx, id)
	if err != nil {
		return core.Project{}, fmt.Errorf("get project: %w", notFound(err, "project", id))
	}
	return p.toCore(), nil
}

func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]core.Project, error) {
	rows, err := r.queries.ListProjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	out := make([]core.Project, 0, len(rows))
	for _, p := range rows {
		out = append(out, p.toCore())
	}
	return out, nil
}

// UpdateProject also renames the project label on its transactions.
func (r *SQLiteRepository) UpdateProject(ctx context.Context, p core.Project) (core.Project, error) {
	if err := p.Validate(); err != nil {
		return core.Project{}, err
	}
	err := r.withTx(ctx, func(q *Queries) error {
		old, err := q.GetProject(ctx, p.ID)
		if err != nil {
			return notFound(err, "project", p.ID)
		}
		n, err := q.UpdateProject(ctx, UpdateProjectParams{ID: p.ID, CreateProjectParams: projectParams(p)})
		if err := expectRow(n, mapConstraint(err), "project", p.ID); err != nil {
			return err
		}
		if !strings.EqualFold(old.Name, p.Name) {
			return q.RenameProjectOnTransactions(ctx, old.Name, strings.TrimSpace(p.Name))
		}
		return nil
	})
	if err != nil {
		return core.Project{}, fmt.Errorf("update project: %w", err)
	}
	return r.GetProject(ctx, p.ID)
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id int64) error {
	n, err := r.queries.DeleteProject(ctx, id)
	if err := expectRow(n, err, "project", id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	return nil
}

// Settings

// GetSettings returns every stored setting as raw JSON.
func (r *SQLiteRepository) GetSettings(ctx context.Context) (map[string]json.RawMessage, error) {
	rows, err := r.queries.ListSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	out := make(map[string]json.RawMessage, len(rows))
	for k, v := range rows {
		out[k] = json.RawMessage(v)
	}
	return out, nil
}

// SaveSettings merges values by key; keys not present are left alone.
func (r *SQLiteRepository) SaveSettings(ctx context.Context, values map[string]json.RawMessage) error {
	return r.withTx(ctx, func(q *Queries) error {
		for k, v := range values {
			if !json.Valid(v) {
				return fmt.Errorf("setting %q: invalid JSON", k)
			}
			if err := q.UpsertSetting(ctx, k, string(v)); err != nil {
				return fmt.Errorf("save setting %q: %w", k, err)
			}
		}
		return nil
	})
}
