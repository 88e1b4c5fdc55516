package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store with hand-written SQL over pgx.
type PostgresStore struct {
	*pgQueries
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{
		pgQueries: &pgQueries{db: pool},
		pool:      pool,
	}
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(q Queries) error) error {
	return s.runInTx(ctx, pgx.TxOptions{}, fn)
}

func (s *PostgresStore) ReadTx(ctx context.Context, fn func(q Queries) error) error {
	return s.runInTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}, fn)
}

func (s *PostgresStore) runInTx(ctx context.Context, opts pgx.TxOptions, fn func(q Queries) error) error {
	tx, err := s.pool.BeginTx(ctx, opts)
	if err != nil {
		return classify("begin transaction", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Warn("Failed to roll back transaction", "err", rbErr)
		}
	}()

	if err := fn(&pgQueries{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit transaction", err)
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

type pgQueries struct {
	db DBTX
}

const userColumns = `id, telegram_id, username, first_name, last_name, is_bot, language_code, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.TelegramID, &u.Username, &u.FirstName, &u.LastName,
		&u.IsBot, &u.LanguageCode, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (q *pgQueries) findUser(ctx context.Context, op, where string, arg any) (User, error) {
	u, err := scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return User{}, classify(op, err)
	}
	if err := q.loadRoles(ctx, []*User{&u}); err != nil {
		return User{}, err
	}
	return u, nil
}

func (q *pgQueries) FindUserByTelegramID(ctx context.Context, telegramID int64) (User, error) {
	return q.findUser(ctx, "find user by telegram id", "telegram_id = $1", telegramID)
}

func (q *pgQueries) FindUserByID(ctx context.Context, id int64) (User, error) {
	return q.findUser(ctx, "find user by id", "id = $1", id)
}

func (q *pgQueries) FindUserByUsername(ctx context.Context, username string) (User, error) {
	return q.findUser(ctx, "find user by username", "username = $1", username)
}

func (q *pgQueries) CreateUser(ctx context.Context, params NewUser) (User, error) {
	row := q.db.QueryRow(ctx, `
		INSERT INTO users (telegram_id, username, first_name, last_name, is_bot, language_code)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+userColumns,
		params.TelegramID, params.Username, params.FirstName, params.LastName, params.IsBot, params.languageCode())
	u, err := scanUser(row)
	if err != nil {
		return User{}, classify("create user", err)
	}
	u.Roles = []Role{}
	return u, nil
}

func (q *pgQueries) ListUsers(ctx context.Context, page Page) ([]User, error) {
	rows, err := q.db.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY id LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, classify("list users", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, classify("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list users", err)
	}

	ptrs := make([]*User, len(users))
	for i := range users {
		ptrs[i] = &users[i]
	}
	if err := q.loadRoles(ctx, ptrs); err != nil {
		return nil, err
	}
	return users, nil
}

// loadRoles fills Roles for every user in one round trip.
func (q *pgQueries) loadRoles(ctx context.Context, users []*User) error {
	if len(users) == 0 {
		return nil
	}
	byID := make(map[int64]*User, len(users))
	ids := make([]int64, 0, len(users))
	for _, u := range users {
		u.Roles = []Role{}
		byID[u.ID] = u
		ids = append(ids, u.ID)
	}

	rows, err := q.db.Query(ctx, `
		SELECT ur.user_id, r.id, r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = ANY($1)
		ORDER BY ur.user_id, r.id`, ids)
	if err != nil {
		return classify("load user roles", err)
	}
	defer rows.Close()

	for rows.Next() {
		var userID int64
		var r Role
		if err := rows.Scan(&userID, &r.ID, &r.Name); err != nil {
			return classify("scan user role", err)
		}
		if u, ok := byID[userID]; ok {
			u.Roles = append(u.Roles, r)
		}
	}
	if err := rows.Err(); err != nil {
		return classify("load user roles", err)
	}
	return nil
}

func (q *pgQueries) findRole(ctx context.Context, op, where string, arg any) (Role, error) {
	var r Role
	err := q.db.QueryRow(ctx, `SELECT id, name FROM roles WHERE `+where, arg).Scan(&r.ID, &r.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, fmt.Errorf("%s: %w", op, ErrRoleNotFound)
		}
		return Role{}, classify(op, err)
	}
	return r, nil
}

func (q *pgQueries) FindRoleByName(ctx context.Context, name string) (Role, error) {
	return q.findRole(ctx, "find role by name", "name = $1", name)
}

func (q *pgQueries) FindRoleByID(ctx context.Context, id int64) (Role, error) {
	return q.findRole(ctx, "find role by id", "id = $1", id)
}

func (q *pgQueries) CreateRole(ctx context.Context, name string) (Role, error) {
	var r Role
	err := q.db.QueryRow(ctx, `INSERT INTO roles (name) VALUES ($1) RETURNING id, name`, name).Scan(&r.ID, &r.Name)
	if err != nil {
		return Role{}, classify("create role", err)
	}
	return r, nil
}

func (q *pgQueries) ListRoles(ctx context.Context, page Page) ([]Role, error) {
	rows, err := q.db.Query(ctx, `SELECT id, name FROM roles ORDER BY id LIMIT $1 OFFSET $2`,
		page.Limit, page.Offset)
	if err != nil {
		return nil, classify("list roles", err)
	}
	defer rows.Close()

	roles := []Role{}
	for rows.Next() {
		var r Role
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, classify("scan role", err)
		}
		roles = append(roles, r)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("list roles", err)
	}
	return roles, nil
}

func (q *pgQueries) AssignRole(ctx context.Context, userID, roleID int64) (User, error) {
	// Serialises concurrent assignments to the same user.
	var lockedID int64
	err := q.db.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&lockedID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, fmt.Errorf("assign role: %w", ErrUserNotFound)
		}
		return User{}, classify("assign role", err)
	}
	if _, err := q.FindRoleByID(ctx, roleID); err != nil {
		return User{}, fmt.Errorf("assign role: %w", err)
	}

	tag, err := q.db.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`, userID, roleID)
	if err != nil {
		return User{}, classify("assign role", err)
	}
	if tag.RowsAffected() == 1 {
		if _, err := q.db.Exec(ctx, `UPDATE users SET updated_at = now() WHERE id = $1`, userID); err != nil {
			return User{}, classify("touch user", err)
		}
	}
	return q.FindUserByID(ctx, userID)
}
