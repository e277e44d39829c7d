package gormdb

import (
	"time"

	"github.com/oggyb/elk-messaging/internal/db"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type GormDB struct {
	conn *gorm.DB
}

// New opens a Postgres connection. GORM's own log lines are routed to log.
func New(dsn string, log zerolog.Logger) (*GormDB, error) {
	return NewWithDialector(postgres.Open(dsn), log)
}

// NewWithDialector opens a connection through any GORM dialector.
func NewWithDialector(dialector gorm.Dialector, log zerolog.Logger) (*GormDB, error) {
	conn, err := gorm.Open(dialector, &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 newLogger(log),
	})
	if err != nil {
		return nil, err
	}
	return &GormDB{conn: conn}, nil
}

func (g *GormDB) Conn() any {
	return g.conn
}

// Migrate creates or updates the tables of the given models.
func (g *GormDB) Migrate(models ...any) error {
	return g.conn.AutoMigrate(models...)
}

// zerologWriter adapts zerolog to gorm's logger.Writer.
type zerologWriter struct {
	log zerolog.Logger
}

func (w zerologWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Msgf(format, args...)
}

func newLogger(log zerolog.Logger) gormlogger.Interface {
	return gormlogger.New(zerologWriter{log: log}, gormlogger.Config{
		SlowThreshold:             500 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

var (
	_ db.DB       = (*GormDB)(nil)
	_ db.Migrator = (*GormDB)(nil)
)
