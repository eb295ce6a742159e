package database

import (
	"errors"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

const (
	maxTxAttempts = 5
	txBackoff     = 20 * time.Millisecond
)

// IsNotFound reports whether err means the queried record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// DuplicateField returns the column that violated a unique index, e.g.
// "email" for "UNIQUE constraint failed: users.email".
func DuplicateField(err error) (string, bool) {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return "", false
	}
	if sqliteErr.ExtendedCode != sqlite3.ErrConstraintUnique &&
		sqliteErr.ExtendedCode != sqlite3.ErrConstraintPrimaryKey {
		return "", false
	}

	msg := sqliteErr.Error()
	idx := strings.LastIndex(msg, ":")
	if idx < 0 {
		return "", true
	}
	// Composite indexes list several columns; the first one names the field.
	column := strings.TrimSpace(strings.Split(msg[idx+1:], ",")[0])
	if dot := strings.LastIndex(column, "."); dot >= 0 {
		column = column[dot+1:]
	}
	return column, true
}

// IsBusy reports whether err is a transient lock conflict worth retrying.
func IsBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
}

// Transaction runs fn in a transaction, retrying the whole unit when the
// store reports a lock conflict. fn must not have side effects outside tx.
func Transaction(db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = db.Transaction(fn)
		if err == nil || !IsBusy(err) {
			return err
		}
		time.Sleep(time.Duration(attempt) * txBackoff)
	}
	return err
}
