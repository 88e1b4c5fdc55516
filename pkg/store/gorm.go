package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type userRow struct {
	ID           int64   `gorm:"primaryKey;autoIncrement"`
	TelegramID   int64   `gorm:"not null;uniqueIndex:users_telegram_id_key"`
	Username     *string `gorm:"size:255;uniqueIndex:users_username_key"`
	FirstName    *string `gorm:"size:255"`
	LastName     *string `gorm:"size:255"`
	IsBot        bool    `gorm:"not null;default:false"`
	LanguageCode string  `gorm:"size:16;not null;default:ru"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (userRow) TableName() string { return "users" }

type roleRow struct {
	ID   int64  `gorm:"primaryKey;autoIncrement"`
	Name string `gorm:"size:255;not null;uniqueIndex:roles_name_key"`
}

func (roleRow) TableName() string { return "roles" }

type userRoleRow struct {
	UserID int64 `gorm:"primaryKey;autoIncrement:false"`
	RoleID int64 `gorm:"primaryKey;autoIncrement:false;index"`
	User   userRow `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Role   roleRow `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE"`
}

func (userRoleRow) TableName() string { return "user_roles" }

func (r userRow) toUser() User {
	return User{
		ID:           r.ID,
		TelegramID:   r.TelegramID,
		Username:     r.Username,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		IsBot:        r.IsBot,
		LanguageCode: r.LanguageCode,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
		Roles:        []Role{},
	}
}

// GormStore implements Store on gorm. It backs the sqlite persistence type.
type GormStore struct {
	*gormQueries
	db *gorm.DB
}

// slogWriter routes gorm's logger output through slog.
type slogWriter struct{}

func (slogWriter) Printf(format string, args ...interface{}) {
	slog.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "gorm")
}

// OpenSQLite opens dsn and creates the schema when it is missing.
func OpenSQLite(dsn string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger: logger.New(slogWriter{}, logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w: %w", ErrStoreUnavailable, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and writers serialised.
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if err := db.AutoMigrate(&userRow{}, &roleRow{}, &userRoleRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}
	return NewGormStore(db), nil
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{gormQueries: &gormQueries{db: db}, db: db}
}

func (s *GormStore) WithTx(ctx context.Context, fn func(q Queries) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormQueries{db: tx})
	})
}

// ReadTx uses an ordinary transaction. SQLite transactions already read a
// consistent snapshot.
func (s *GormStore) ReadTx(ctx context.Context, fn func(q Queries) error) error {
	return s.WithTx(ctx, fn)
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("ping: %w: %w", ErrStoreUnavailable, err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *GormStore) Close() {
	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

type gormQueries struct {
	db *gorm.DB
}

func gormErr(op string, err error, notFound error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, notFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", op, ErrDuplicateKey)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func (q *gormQueries) findUser(ctx context.Context, op string, query string, arg any) (User, error) {
	var row userRow
	if err := q.db.WithContext(ctx).Where(query, arg).First(&row).Error; err != nil {
		return User{}, gormErr(op, err, ErrUserNotFound)
	}
	users := []User{row.toUser()}
	if err := q.loadRoles(ctx, users); err != nil {
		return User{}, err
	}
	return users[0], nil
}

func (q *gormQueries) FindUserByTelegramID(ctx context.Context, telegramID int64) (User, error) {
	return q.findUser(ctx, "find user by telegram id", "telegram_id = ?", telegramID)
}

func (q *gormQueries) FindUserByID(ctx context.Context, id int64) (User, error) {
	return q.findUser(ctx, "find user by id", "id = ?", id)
}

func (q *gormQueries) FindUserByUsername(ctx context.Context, username string) (User, error) {
	return q.findUser(ctx, "find user by username", "username = ?", username)
}

func (q *gormQueries) CreateUser(ctx context.Context, params NewUser) (User, error) {
	row := userRow{
		TelegramID:   params.TelegramID,
		Username:     params.Username,
		FirstName:    params.FirstName,
		LastName:     params.LastName,
		IsBot:        params.IsBot,
		LanguageCode: params.languageCode(),
	}
	if err := q.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return User{}, q.userConflict(ctx, params)
		}
		return User{}, gormErr("create user", err, ErrNotFound)
	}
	return row.toUser(), nil
}

// userConflict names the unique key a failed insert collided with. The sqlite
// driver reports unique violations without the index name.
func (q *gormQueries) userConflict(ctx context.Context, params NewUser) error {
	constraint := ConstraintUserTelegramID
	if params.Username != nil {
		var n int64
		err := q.db.WithContext(ctx).Model(&userRow{}).Where("telegram_id = ?", params.TelegramID).Count(&n).Error
		if err != nil {
			return gormErr("create user", err, ErrNotFound)
		}
		if n == 0 {
			constraint = ConstraintUserUsername
		}
	}
	return &DuplicateKeyError{Op: "create user", Constraint: constraint}
}

func (q *gormQueries) ListUsers(ctx context.Context, page Page) ([]User, error) {
	if page.Limit == 0 {
		return []User{}, nil
	}
	var rows []userRow
	err := q.db.WithContext(ctx).Order("id").Offset(page.Offset).Limit(page.Limit).Find(&rows).Error
	if err != nil {
		return nil, gormErr("list users", err, ErrNotFound)
	}
	users := make([]User, 0, len(rows))
	for _, r := range rows {
		users = append(users, r.toUser())
	}
	if err := q.loadRoles(ctx, users); err != nil {
		return nil, err
	}
	return users, nil
}

func (q *gormQueries) loadRoles(ctx context.Context, users []User) error {
	if len(users) == 0 {
		return nil
	}
	index := make(map[int64]int, len(users))
	ids := make([]int64, 0, len(users))
	for i, u := range users {
		index[u.ID] = i
		ids = append(ids, u.ID)
	}

	var links []struct {
		UserID int64
		ID     int64
		Name   string
	}
	err := q.db.WithContext(ctx).
		Table("user_roles").
		Select("user_roles.user_id, roles.id, roles.name").
		Joins("JOIN roles ON roles.id = user_roles.role_id").
		Where("user_roles.user_id IN ?", ids).
		Order("user_roles.user_id, roles.id").
		Scan(&links).Error
	if err != nil {
		return gormErr("load user roles", err, ErrNotFound)
	}
	for _, l := range links {
		i := index[l.UserID]
		users[i].Roles = append(users[i].Roles, Role{ID: l.ID, Name: l.Name})
	}
	return nil
}

func (q *gormQueries) FindRoleByName(ctx context.Context, name string) (Role, error) {
	var row roleRow
	if err := q.db.WithContext(ctx).Where("name = ?", name).First(&row).Error; err != nil {
		return Role{}, gormErr("find role by name", err, ErrRoleNotFound)
	}
	return Role{ID: row.ID, Name: row.Name}, nil
}

func (q *gormQueries) FindRoleByID(ctx context.Context, id int64) (Role, error) {
	var row roleRow
	if err := q.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return Role{}, gormErr("find role by id", err, ErrRoleNotFound)
	}
	return Role{ID: row.ID, Name: row.Name}, nil
}

func (q *gormQueries) CreateRole(ctx context.Context, name string) (Role, error) {
	row := roleRow{Name: name}
	if err := q.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return Role{}, &DuplicateKeyError{Op: "create role", Constraint: ConstraintRoleName}
		}
		return Role{}, gormErr("create role", err, ErrNotFound)
	}
	return Role{ID: row.ID, Name: row.Name}, nil
}

func (q *gormQueries) ListRoles(ctx context.Context, page Page) ([]Role, error) {
	if page.Limit == 0 {
		return []Role{}, nil
	}
	var rows []roleRow
	err := q.db.WithContext(ctx).Order("id").Offset(page.Offset).Limit(page.Limit).Find(&rows).Error
	if err != nil {
		return nil, gormErr("list roles", err, ErrNotFound)
	}
	roles := make([]Role, 0, len(rows))
	for _, r := range rows {
		roles = append(roles, Role{ID: r.ID, Name: r.Name})
	}
	return roles, nil
}

func (q *gormQueries) AssignRole(ctx context.Context, userID, roleID int64) (User, error) {
	db := q.db.WithContext(ctx)
	var user userRow
	if err := db.First(&user, userID).Error; err != nil {
		return User{}, gormErr("assign role", err, ErrUserNotFound)
	}
	if _, err := q.FindRoleByID(ctx, roleID); err != nil {
		return User{}, fmt.Errorf("assign role: %w", err)
	}

	res := db.Clauses(clause.OnConflict{DoNothing: true}).
		Omit(clause.Associations).
		Create(&userRoleRow{UserID: userID, RoleID: roleID})
	if res.Error != nil {
		return User{}, gormErr("assign role", res.Error, ErrNotFound)
	}
	if res.RowsAffected == 1 {
		err := db.Model(&userRow{}).Where("id = ?", userID).Update("updated_at", time.Now().UTC()).Error
		if err != nil {
			return User{}, gormErr("touch user", err, ErrUserNotFound)
		}
	}
	return q.FindUserByID(ctx, userID)
}
