package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Options 控制 SQLite 连接行为。
type Options struct {
	// BusyTimeout 其它进程持有写锁时的最长等待时间。
	BusyTimeout time.Duration
	// Debug 打开 gorm 的 SQL 日志。
	Debug bool
}

// Store owns the database handle. It is created once by the caller and passed
// explicitly to whoever needs it.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

// Open connects to the SQLite file at path and ensures the schema exists.
func Open(path string, opts Options, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	level := logger.Silent
	if opts.Debug {
		level = logger.Info
	}
	db, err := gorm.Open(sqlite.Open(dsn(path, opts.BusyTimeout)), &gorm.Config{
		Logger:         logger.Default.LogMode(level),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", model.ErrStorage, path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrStorage, err)
	}
	// SQLite 只有一个写者：单连接让同进程内的事务排队，不会互相撞上 SQLITE_BUSY。
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db, log: log}
	if err := s.CreateSchema(context.Background()); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	log.Debug("store opened", zap.String("path", path))
	return s, nil
}

// dsn 拼接 mattn/go-sqlite3 参数：BEGIN IMMEDIATE 在事务开始时即拿写锁。
func dsn(path string, busy time.Duration) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d&_txlock=immediate", path, sep, busy.Milliseconds())
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// CreateSchema creates missing tables; existing rows are untouched.
func (s *Store) CreateSchema(ctx context.Context) error {
	return createSchema(s.db.WithContext(ctx))
}

// ResetCatalog drops and recreates the products table. The sales ledger is
// append-only and is never dropped.
func (s *Store) ResetCatalog(ctx context.Context) error {
	return resetCatalog(s.db.WithContext(ctx))
}

func createSchema(db *gorm.DB) error {
	if err := db.Migrator().AutoMigrate(model.Tables...); err != nil {
		return fmt.Errorf("%w: migrate: %w", model.ErrStorage, err)
	}
	return nil
}

func resetCatalog(db *gorm.DB) error {
	if err := db.Migrator().DropTable(&model.Product{}); err != nil {
		return fmt.Errorf("%w: drop products: %w", model.ErrStorage, err)
	}
	return createSchema(db)
}

// Catalog returns the product store bound to the pool.
func (s *Store) Catalog() *Catalog { return &Catalog{db: s.db} }

// Ledger returns the sales ledger bound to the pool.
func (s *Store) Ledger() *Ledger { return &Ledger{db: s.db} }

// Tx is a unit of work spanning both stores.
type Tx struct {
	db *gorm.DB
}

func (t *Tx) Catalog() *Catalog { return &Catalog{db: t.db} }
func (t *Tx) Ledger() *Ledger { return &Ledger{db: t.db} }

// ResetCatalog 在事务内重建商品表，失败时随事务一起回滚。
func (t *Tx) ResetCatalog() error { return resetCatalog(t.db) }

func (t *Tx) CreateSchema() error { return createSchema(t.db) }

// WithTx runs fn inside one transaction. Any error returned by fn, or a
// failed commit, rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, &Tx{db: db})
	})
	if err == nil {
		return nil
	}
	if model.IsKind(err) {
		return err
	}
	return wrapStorage("transaction", err)
}

func wrapStorage(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrStorage, op, err)
}

// errorsLikeUnique 兜底识别唯一约束冲突（TranslateError 未覆盖时）。
func errorsLikeUnique(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "UNIQUE") || strings.Contains(s, "unique")
}
