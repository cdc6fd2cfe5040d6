package storage

import (
	"context"
	"database/sql"
)

const upsertCategory = `-- name: UpsertCategory :exec
INSERT INTO categories (name) VALUES (?) ON CONFLICT (name) DO NOTHING`

func (q *Queries) UpsertCategory(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, upsertCategory, name)
	return err
}

const getCategoryByName = `-- name: GetCategoryByName :one
SELECT id, name FROM categories WHERE name = ? COLLATE NOCASE`

func (q *Queries) GetCategoryByName(ctx context.Context, name string) (Category, error) {
	var c Category
	err := q.db.QueryRowContext(ctx, getCategoryByName, name).Scan(&c.ID, &c.Name)
	return c, err
}

const listCategories = `-- name: ListCategories :many
SELECT id, name FROM categories ORDER BY name COLLATE NOCASE`

func (q *Queries) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Category
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const deleteCategory = `-- name: DeleteCategory :execrows
DELETE FROM categories WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCategory, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const upsertPayee = `-- name: UpsertPayee :exec
INSERT INTO payees (name, account_id) VALUES (?, ?)
ON CONFLICT (name) DO UPDATE SET account_id = COALESCE(excluded.account_id, payees.account_id)`

func (q *Queries) UpsertPayee(ctx context.Context, name string, accountID sql.NullInt64) error {
	_, err := q.db.ExecContext(ctx, upsertPayee, name, accountID)
	return err
}

const getPayeeByName = `-- name: GetPayeeByName :one
SELECT id, name, account_id FROM payees WHERE name = ? COLLATE NOCASE`

func (q *Queries) GetPayeeByName(ctx context.Context, name string) (Payee, error) {
	var p Payee
	err := q.db.QueryRowContext(ctx, getPayeeByName, name).Scan(&p.ID, &p.Name, &p.AccountID)
	return p, err
}

const listPayees = `-- name: ListPayees :many
SELECT id, name, account_id FROM payees ORDER BY name COLLATE NOCASE`

func (q *Queries) ListPayees(ctx context.Context) ([]Payee, error) {
	rows, err := q.db.QueryContext(ctx, listPayees)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Payee
	for rows.Next() {
		var p Payee
		if err := rows.Scan(&p.ID, &p.Name, &p.AccountID); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const deletePayee = `-- name: DeletePayee :execrows
DELETE FROM payees WHERE id = ?`

func (q *Queries) DeletePayee(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deletePayee, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const projectColumns = `id, name, description, category, notes, created_at`

func scanProject(row scanner) (Project, error) {
	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Category, &p.Notes, &p.CreatedAt)
	return p, err
}

const upsertProjectName = `-- name: UpsertProjectName :exec
INSERT INTO projects (name) VALUES (?) ON CONFLICT (name) DO NOTHING`

func (q *Queries) UpsertProjectName(ctx context.Context, name string) error {
	_, err := q.db.ExecContext(ctx, upsertProjectName, name)
	return err
}

const createProject = `-- name: CreateProject :one
INSERT INTO projects (name, description, category, notes) VALUES (?, ?, ?, ?)
RETURNING ` + projectColumns

type CreateProjectParams struct {
	Name        string
	Description sql.NullString
	Category    sql.NullString
	Notes       sql.NullString
}

func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) (Project, error) {
	row := q.db.QueryRowContext(ctx, createProject, arg.Name, arg.Description, arg.Category, arg.Notes)
	return scanProject(row)
}

const getProject = `-- name: GetProject :one
SELECT ` + projectColumns + ` FROM projects WHERE id = ?`

func (q *Queries) GetProject(ctx context.Context, id int64) (Project, error) {
	return scanProject(q.db.QueryRowContext(ctx, getProject, id))
}

const listProjects = `-- name: ListProjects :many
SELECT ` + projectColumns + ` FROM projects ORDER BY name COLLATE NOCASE`

func (q *Queries) ListProjects(ctx context.Context) ([]Project, error) {
	rows, err := q.db.QueryContext(ctx, listProjects)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

const updateProject = `-- name: UpdateProject :execrows
UPDATE projects SET name = ?, description = ?, category = ?, notes = ? WHERE id = ?`

type UpdateProjectParams struct {
	ID int64
	CreateProjectParams
}

func (q *Queries) UpdateProject(ctx context.Context, arg UpdateProjectParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateProject, arg.Name, arg.Description, arg.Category, arg.Notes, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const renameProjectOnTransactions = `-- name: RenameProjectOnTransactions :exec
UPDATE transactions SET project = ?2 WHERE project = ?1 COLLATE NOCASE`

func (q *Queries) RenameProjectOnTransactions(ctx context.Context, from, to string) error {
	_, err := q.db.ExecContext(ctx, renameProjectOnTransactions, from, to)
	return err
}

const deleteProject = `-- name: DeleteProject :execrows
DELETE FROM projects WHERE id = ?`

func (q *Queries) DeleteProject(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteProject, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listSettings = `-- name: ListSettings :many
SELECT key, value FROM settings ORDER BY key`

func (q *Queries) ListSettings(ctx context.Context) (map[string]string, error) {
	rows, err := q.db.QueryContext(ctx, listSettings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}

const upsertSetting = `-- name: UpsertSetting :exec
INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

func (q *Queries) UpsertSetting(ctx context.Context, key, value string) error {
	_, err := q.db.ExecContext(ctx, upsertSetting, key, value)
	return err
}
