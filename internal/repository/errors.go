package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

const (
	mysqlDuplicateEntry   = 1062
	mysqlLockWaitTimeout  = 1205
	mysqlDeadlockDetected = 1213
)

var ErrNoRowsAffected = errors.New("NO_ROWS_AFFECTED")

func isDuplicateKey(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry
}

// IsRetryable reports whether err is a deadlock or lock wait timeout, after
// which MySQL has rolled the transaction back and it can be run again.
func IsRetryable(err error) bool {
	var mysqlErr *mysql.MySQLError
	if !errors.As(err, &mysqlErr) {
		return false
	}
	return mysqlErr.Number == mysqlDeadlockDetected || mysqlErr.Number == mysqlLockWaitTimeout
}
