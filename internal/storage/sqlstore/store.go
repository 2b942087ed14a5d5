// Package sqlstore implements the record store on database/sql for SQLite
// (modernc.org/sqlite) and PostgreSQL (pgx stdlib).
//
// Timestamps are stored as Unix milliseconds and money as integer cents so
// both dialects share the same queries, written with ? placeholders and
// rebound for PostgreSQL.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"household/internal/core"
	"household/internal/storage"
)

type Dialect string

const (
	SQLite   Dialect = "sqlite"
	Postgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == Postgres {
		return "pgx"
	}
	return "sqlite"
}

type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ storage.Store = (*Store)(nil)

// OpenSQLite opens (creating if needed) the SQLite database at dbPath and
// applies migrations.
func OpenSQLite(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	return open(context.Background(), SQLite, dsn)
}

// OpenPostgres connects to databaseURL and applies migrations.
func OpenPostgres(ctx context.Context, databaseURL string) (*Store, error) {
	return open(ctx, Postgres, databaseURL)
}

func open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}
	if dialect == SQLite {
		// Serialise writers; SQLite allows a single writer at a time.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dialect, dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	slog.InfoContext(ctx, "SQL store ready", "dialect", dialect)
	return &Store{db: db, dialect: dialect}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(q string) string {
	if s.dialect != Postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(q), args...)
}

func (s *Store) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(q), args...)
}

func (s *Store) queryRow(ctx context.Context, q string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(q), args...)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

// expectOne maps a zero-row update or delete to ErrNotFound.
func expectOne(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms) }

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil || t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: millis(*t), Valid: true}
}

func timePtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

// where accumulates AND-ed conditions and their arguments.
type where struct {
	conds []string
	args  []any
}

func (w *where) add(cond string, args ...any) {
	w.conds = append(w.conds, cond)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// Users

const userColumns = "id, name, email, password_hash, created_at"

func scanUser(row interface{ Scan(...any) error }) (core.User, error) {
	var (
		u       core.User
		created int64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &created); err != nil {
		return core.User{}, err
	}
	u.CreatedAt = fromMillis(created)
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u core.User) error {
	_, err := s.exec(ctx,
		"INSERT INTO users ("+userColumns+") VALUES (?, ?, ?, ?, ?)",
		u.ID, u.Name, strings.ToLower(u.Email), u.PasswordHash, millis(u.CreatedAt))
	if isUniqueViolation(err) {
		return storage.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (core.User, error) {
	u, err := scanUser(s.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, storage.ErrNotFound
	}
	return u, err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (core.User, error) {
	u, err := scanUser(s.queryRow(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", strings.ToLower(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, storage.ErrNotFound
	}
	return u, err
}

func (s *Store) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := s.query(ctx, "SELECT "+userColumns+" FROM users ORDER BY created_at")
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []core.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Tasks

const taskColumns = "id, title, description, status, tag, recurring, user_id, created_at"

func scanTask(row interface{ Scan(...any) error }) (core.Task, error) {
	var (
		t       core.Task
		desc    sql.NullString
		tag     sql.NullString
		status  string
		created int64
	)
	if err := row.Scan(&t.ID, &t.Title, &desc, &status, &tag, &t.Recurring, &t.UserID, &created); err != nil {
		return core.Task{}, err
	}
	t.Description = stringPtr(desc)
	t.Tag = stringPtr(tag)
	t.Status = core.TaskStatus(status)
	t.CreatedAt = fromMillis(created)
	return t, nil
}

func (s *Store) CreateTasks(ctx context.Context, tasks ...core.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.rebind(
		"INSERT INTO tasks ("+taskColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)"))
	if err != nil {
		return fmt.Errorf("prepare insert task: %w", err)
	}
	defer stmt.Close()

	for _, t := range tasks {
		if _, err := stmt.ExecContext(ctx, t.ID, t.Title, nullString(t.Description), string(t.Status),
			nullString(t.Tag), t.Recurring, t.UserID, millis(t.CreatedAt)); err != nil {
			return fmt.Errorf("insert task %s: %w", t.ID, err)
		}
	}
	return tx.Commit()
}

func (s *Store) GetTask(ctx context.Context, id string) (core.Task, error) {
	t, err := scanTask(s.queryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Task{}, storage.ErrNotFound
	}
	return t, err
}

func (s *Store) ListTasks(ctx context.Context, f storage.TaskFilter) ([]core.Task, error) {
	var w where
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.Tag != "" {
		w.add("tag = ?", f.Tag)
	}
	if f.Recurring != nil {
		w.add("recurring = ?", *f.Recurring)
	}
	if !f.CreatedFrom.IsZero() {
		w.add("created_at >= ?", millis(f.CreatedFrom))
	}
	if !f.CreatedTo.IsZero() {
		w.add("created_at <= ?", millis(f.CreatedTo))
	}
	if strings.TrimSpace(f.Search) != "" {
		p := storage.SearchPattern(f.Search)
		w.add(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\')`, p, p)
	}
	q := "SELECT " + taskColumns + " FROM tasks" + w.String() + " ORDER BY created_at DESC"
	if f.Limit > 0 {
		q += " LIMIT " + strconv.Itoa(f.Limit)
	}

	rows, err := s.query(ctx, q, w.args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []core.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) UpdateTask(ctx context.Context, t core.Task) error {
	return expectOne(s.exec(ctx,
		"UPDATE tasks SET title = ?, description = ?, status = ?, tag = ?, recurring = ? WHERE id = ?",
		t.Title, nullString(t.Description), string(t.Status), nullString(t.Tag), t.Recurring, t.ID))
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return expectOne(s.exec(ctx, "DELETE FROM tasks WHERE id = ?", id))
}

// Goals

const goalColumns = "id, title, description, category, responsible, deadline, completed, user_id, created_at"

func scanGoal(row interface{ Scan(...any) error }) (core.Goal, error) {
	var (
		g                           core.Goal
		desc, category, responsible sql.NullString
		deadline                    sql.NullInt64
		created                     int64
	)
	if err := row.Scan(&g.ID, &g.Title, &desc, &category, &responsible, &deadline, &g.Completed, &g.UserID, &created); err != nil {
		return core.Goal{}, err
	}
	g.Description = stringPtr(desc)
	g.Category = stringPtr(category)
	g.Responsible = stringPtr(responsible)
	g.Deadline = timePtr(deadline)
	g.CreatedAt = fromMillis(created)
	return g, nil
}

func (s *Store) CreateGoal(ctx context.Context, g core.Goal) error {
	_, err := s.exec(ctx,
		"INSERT INTO goals ("+goalColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		g.ID, g.Title, nullString(g.Description), nullString(g.Category), nullString(g.Responsible),
		nullMillis(g.Deadline), g.Completed, g.UserID, millis(g.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert goal: %w", err)
	}
	return nil
}

func (s *Store) GetGoal(ctx context.Context, id string) (core.Goal, error) {
	g, err := scanGoal(s.queryRow(ctx, "SELECT "+goalColumns+" FROM goals WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Goal{}, storage.ErrNotFound
	}
	return g, err
}

func (s *Store) ListGoals(ctx context.Context, f storage.GoalFilter) ([]core.Goal, error) {
	var w where
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.Responsible != "" {
		w.add("responsible = ?", f.Responsible)
	}
	if strings.TrimSpace(f.Search) != "" {
		p := storage.SearchPattern(f.Search)
		w.add(`(LOWER(title) LIKE ? ESCAPE '\' OR LOWER(COALESCE(description, '')) LIKE ? ESCAPE '\')`, p, p)
	}

	rows, err := s.query(ctx, "SELECT "+goalColumns+" FROM goals"+w.String()+" ORDER BY created_at DESC", w.args...)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	goals := []core.Goal{}
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (s *Store) UpdateGoal(ctx context.Context, g core.Goal) error {
	return expectOne(s.exec(ctx,
		"UPDATE goals SET title = ?, description = ?, category = ?, responsible = ?, deadline = ?, completed = ? WHERE id = ?",
		g.Title, nullString(g.Description), nullString(g.Category), nullString(g.Responsible),
		nullMillis(g.Deadline), g.Completed, g.ID))
}

func (s *Store) DeleteGoal(ctx context.Context, id string) error {
	return expectOne(s.exec(ctx, "DELETE FROM goals WHERE id = ?", id))
}

// Transactions

const transactionColumns = "id, title, amount_cents, type, category, date, description, responsavel, user_id"

func scanTransaction(row interface{ Scan(...any) error }) (core.Transaction, error) {
	var (
		tx                core.Transaction
		typ               string
		date              int64
		desc, responsavel sql.NullString
	)
	if err := row.Scan(&tx.ID, &tx.Title, &tx.Amount.Cents, &typ, &tx.Category, &date, &desc, &responsavel, &tx.UserID); err != nil {
		return core.Transaction{}, err
	}
	tx.Type = core.TransactionType(typ)
	tx.Date = fromMillis(date)
	tx.Description = stringPtr(desc)
	tx.Responsavel = stringPtr(responsavel)
	return tx, nil
}

func (s *Store) CreateTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := s.exec(ctx,
		"INSERT INTO transactions ("+transactionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		tx.ID, tx.Title, tx.Amount.Cents, string(tx.Type), tx.Category, millis(tx.Date),
		nullString(tx.Description), nullString(tx.Responsavel), tx.UserID)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	tx, err := scanTransaction(s.queryRow(ctx, "SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, storage.ErrNotFound
	}
	return tx, err
}

func (s *Store) ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]core.Transaction, error) {
	var w where
	if f.UserID != "" {
		w.add("user_id = ?", f.UserID)
	}
	if f.Category != "" {
		w.add("category = ?", f.Category)
	}
	if f.Type != "" {
		w.add("type = ?", string(f.Type))
	}
	if f.Responsavel != "" {
		w.add("responsavel = ?", f.Responsavel)
	}
	if !f.From.IsZero() {
		w.add("date >= ?", millis(f.From))
	}
	if !f.To.IsZero() {
		w.add("date <= ?", millis(f.To))
	}

	rows, err := s.query(ctx, "SELECT "+transactionColumns+" FROM transactions"+w.String()+" ORDER BY date DESC", w.args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []core.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Store) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	return expectOne(s.exec(ctx,
		"UPDATE transactions SET title = ?, amount_cents = ?, type = ?, category = ?, date = ?, description = ?, responsavel = ? WHERE id = ?",
		tx.Title, tx.Amount.Cents, string(tx.Type), tx.Category, millis(tx.Date),
		nullString(tx.Description), nullString(tx.Responsavel), tx.ID))
}

func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	return expectOne(s.exec(ctx, "DELETE FROM transactions WHERE id = ?", id))
}

func (s *Store) FillResponsavel(ctx context.Context, userID, responsavel string) (int, error) {
	res, err := s.exec(ctx,
		"UPDATE transactions SET responsavel = ? WHERE user_id = ? AND responsavel IS NULL",
		responsavel, userID)
	if err != nil {
		return 0, fmt.Errorf("fill responsavel: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}
