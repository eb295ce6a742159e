package database

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/librarian/internal/entities"
)

// ErrNotInitialized is returned by Get before Init has succeeded.
var ErrNotInitialized = errors.New("database not initialized")

type Database struct {
	DB *gorm.DB
}

// Options tunes how the connection is opened.
type Options struct {
	// Verbose logs every SQL statement.
	Verbose bool
}

func NewDatabase(dbPath string) (*Database, error) {
	return Open(dbPath, Options{})
}

func Open(dbPath string, opts Options) (*Database, error) {
	level := logger.Warn
	if opts.Verbose {
		level = logger.Info
	}

	db, err := gorm.Open(sqlite.Open(dsn(dbPath)), &gorm.Config{
		Logger: logger.Default.LogMode(level),
		// References between records are plain ids without cascades.
		DisableForeignKeyConstraintWhenMigrating: true,
		// Timestamps are compared as text, so they are all written in UTC.
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Category{},
		&entities.Book{},
		&entities.Loan{},
		&entities.AuditEvent{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.ensureSessionsTable(); err != nil {
		return nil, fmt.Errorf("failed to create sessions table: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

// dsn appends the pragmas every connection needs. Concurrent writers wait on
// the lock instead of failing immediately.
func dsn(dbPath string) string {
	if strings.Contains(dbPath, "?") {
		return dbPath
	}
	return dbPath + "?_busy_timeout=5000&_journal_mode=WAL"
}

// ensureSessionsTable creates the table used by the sqlite3store session store.
func (d *Database) ensureSessionsTable() error {
	return d.DB.Exec(`CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry);`).Error
}

// Ping checks that the underlying connection is alive.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var (
	gatewayMu sync.Mutex
	gateway   *Database
)

// Init opens the process-wide database once. Later calls return the
// already-open handle.
func Init(dbPath string, opts Options) (*Database, error) {
	gatewayMu.Lock()
	defer gatewayMu.Unlock()

	if gateway != nil {
		return gateway, nil
	}
	db, err := Open(dbPath, opts)
	if err != nil {
		return nil, err
	}
	gateway = db
	return gateway, nil
}

// Get returns the process-wide database or ErrNotInitialized.
func Get() (*Database, error) {
	gatewayMu.Lock()
	defer gatewayMu.Unlock()

	if gateway == nil {
		return nil, ErrNotInitialized
	}
	return gateway, nil
}

// Shutdown closes the process-wide database. It is safe to call when Init
// never ran.
func Shutdown() error {
	gatewayMu.Lock()
	defer gatewayMu.Unlock()

	if gateway == nil {
		return nil
	}
	err := gateway.Close()
	gateway = nil
	return err
}
