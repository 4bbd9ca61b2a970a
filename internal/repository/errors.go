// Package repository holds the MySQL data access for users, refresh tokens
// and saved classrooms. Handlers distinguish failures through the sentinel
// values below and never inspect driver errors themselves.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrEmailExists is returned when registering an address already in use.
	ErrEmailExists = errors.New("email already exists")
	// ErrUserNotFound is returned when no user matches the lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrRefreshInvalid covers unknown, expired and revoked refresh tokens.
	ErrRefreshInvalid = errors.New("refresh token invalid")
	// ErrClassroomNotFound is returned when a classroom does not exist or is
	// owned by someone else. Handlers translate it into a 404 either way.
	ErrClassroomNotFound = errors.New("classroom not found")
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
