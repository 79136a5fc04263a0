package snapshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"echocircle/internal/config"
	"echocircle/internal/observability"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// snapshotRow is the single key/blob row backing a DatabaseStore.
type snapshotRow struct {
	Key       string    `gorm:"primaryKey;size:120"`
	Data      []byte    `gorm:"type:blob;not null"`
	UpdatedAt time.Time
}

// TableName specifies the table name for GORM.
func (snapshotRow) TableName() string {
	return "snapshots"
}

// DatabaseStore persists the snapshot as a single row in a relational
// database, keyed by the configured snapshot key. SQLite is the default
// embedded backend; postgres is available for shared deployments.
type DatabaseStore struct {
	db  *gorm.DB
	key string
}

// slogGormLogger integrates GORM with slog.
type slogGormLogger struct {
	logger *observability.Logger
	Config logger.Config
}

// LogMode sets the logging level and returns a new interface instance.
func (l *slogGormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newlogger := *l
	newlogger.Config.LogLevel = level
	return &newlogger
}

// Info logs an informational message with context.
func (l *slogGormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Info {
		l.logger.InfoContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Warn logs a warning message with context.
func (l *slogGormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Warn {
		l.logger.WarnContext(ctx, fmt.Sprintf(msg, data...))
	}
}

func (l *slogGormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.Config.LogLevel >= logger.Error {
		l.logger.ErrorContext(ctx, fmt.Sprintf(msg, data...))
	}
}

// Trace logs trace-level information including SQL queries and execution time.
func (l *slogGormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.Config.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	sql, rows := fc()

	switch {
	case err != nil && l.Config.LogLevel >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		l.logger.ErrorContext(ctx, "GORM query error",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
			slog.String("error", err.Error()),
		)
	case elapsed > l.Config.SlowThreshold && l.Config.SlowThreshold != 0 && l.Config.LogLevel >= logger.Warn:
		l.logger.WarnContext(ctx, "GORM slow query",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	case l.Config.LogLevel >= logger.Info:
		l.logger.InfoContext(ctx, "GORM query",
			slog.String("sql", sql),
			slog.Int64("rows", rows),
			slog.Duration("elapsed", elapsed),
		)
	}
}

// ConnectDatabase opens the snapshot database from configuration, migrates
// the snapshots table and returns a DatabaseStore addressed by the snapshot key.
func ConnectDatabase(cfg *config.Config) (*DatabaseStore, error) {
	gormLogger := &slogGormLogger{
		logger: observability.GlobalLogger,
		Config: logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	}

	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		sslMode := cfg.DBSSLMode
		if sslMode == "" {
			sslMode = "disable"
		}
		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			cfg.DBHost,
			cfg.DBPort,
			cfg.DBUser,
			cfg.DBPassword,
			cfg.DBName,
			sslMode,
		)
		dialector = postgres.Open(dsn)
	default:
		dialector = sqlite.Open(cfg.DBPath)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("snapshot: failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(&snapshotRow{}); err != nil {
		return nil, fmt.Errorf("snapshot: failed to migrate snapshots table: %w", err)
	}

	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(4)
		sqlDB.SetMaxIdleConns(2)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	observability.GlobalLogger.Info("Snapshot database connected", slog.String("driver", cfg.DBDriver))
	return NewDatabaseStore(db, cfg.SnapshotKey), nil
}

// NewDatabaseStore wraps an already-open gorm DB. Used by tests.
func NewDatabaseStore(db *gorm.DB, key string) *DatabaseStore {
	return &DatabaseStore{db: db, key: key}
}

// Load returns the stored snapshot, or (nil, nil) when the row is absent.
func (d *DatabaseStore) Load(ctx context.Context) (*Snapshot, error) {
	var row snapshotRow
	err := d.db.WithContext(ctx).First(&row, "key = ?", d.key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot: select %s: %w", d.key, err)
	}

	var s Snapshot
	if err := json.Unmarshal(row.Data, &s); err != nil {
		return nil, fmt.Errorf("snapshot: decode %s: %w", d.key, err)
	}
	return &s, nil
}

// Save upserts the snapshot row. Last writer wins.
func (d *DatabaseStore) Save(ctx context.Context, s *Snapshot) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("snapshot: marshal: %w", err)
	}
	row := snapshotRow{Key: d.key, Data: data, UpdatedAt: time.Now().UTC()}
	return d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
}

// Clear deletes the snapshot row.
func (d *DatabaseStore) Clear(ctx context.Context) error {
	return d.db.WithContext(ctx).Delete(&snapshotRow{}, "key = ?", d.key).Error
}

// Close closes the underlying sql.DB.
func (d *DatabaseStore) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
