package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quiz-room-service/internal/domain"
	pgmigrations "quiz-room-service/internal/infra/postgres/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Store implements app.Store on Postgres. Entity CRUD and transactions go
// through bun; the ledger upsert, the participant recompute and the joined
// reads run as single pgx statements.
type Store struct {
	db   *bun.DB
	pool *pgxpool.Pool
}

// Open connects both clients to the same database.
func Open(ctx context.Context, dsn string) (*Store, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	pool, err := pgxpool.Connect(ctx, dsn)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect pgx pool: %w", err)
	}
	return &Store{db: db, pool: pool}, nil
}

// Migrate applies every pending schema migration.
func (s *Store) Migrate(ctx context.Context) error {
	return Migrate(ctx, s.db)
}

// Migrate applies every pending schema migration on db.
func Migrate(ctx context.Context, db *bun.DB) error {
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return s.db.Close()
}

type userRow struct {
	bun.BaseModel `bun:"table:users"`

	ID        string    `bun:"id,pk,type:uuid"`
	Name      string    `bun:"name"`
	Email     string    `bun:"email,nullzero"`
	Avatar    string    `bun:"avatar"`
	CreatedAt time.Time `bun:"created_at"`
}

func (r userRow) toDomain() domain.User {
	return domain.User{ID: r.ID, Name: r.Name, Email: r.Email, Avatar: r.Avatar, CreatedAt: r.CreatedAt}
}

func (s *Store) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	row := userRow{ID: user.ID, Name: user.Name, Email: user.Email, Avatar: user.Avatar, CreatedAt: user.CreatedAt}
	if _, err := s.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return domain.User{}, domain.Storage("create user", err)
	}
	return row.toDomain(), nil
}

func (s *Store) GetUser(ctx context.Context, id string) (domain.User, error) {
	if !validID(id) {
		return domain.User{}, domain.ErrUserNotFound
	}
	var row userRow
	err := s.db.NewSelect().Model(&row).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, domain.Storage("get user", err)
	}
	return row.toDomain(), nil
}

// validID reports whether every id parses as a UUID. Anything else can never
// match a row, so callers answer not found without a round trip.
func validID(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

// sqlState extracts the SQLSTATE and constraint name from either driver.
func sqlState(err error) (code, constraint string) {
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) {
		return pgErr.Field('C'), pgErr.Field('n')
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.Code, pgxErr.ConstraintName
	}
	return "", ""
}
