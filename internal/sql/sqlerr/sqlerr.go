// Package sqlerr defines the error kinds the engine reports at the statement
// boundary. Every failure wraps exactly one of the sentinels below, so any
// layer can classify with errors.Is without string matching.
package sqlerr

import (
	"errors"
	"fmt"
)

var (
	ErrSyntax           = errors.New("syntax error")
	ErrUnsupported      = errors.New("unsupported feature")
	ErrNoSuchTable      = errors.New("no such table")
	ErrDuplicateTable   = errors.New("duplicate table")
	ErrColumnNotFound   = errors.New("column not found")
	ErrTypeMismatch     = errors.New("type mismatch")
	ErrNotNull          = errors.New("not null violation")
	ErrIntegrity        = errors.New("integrity violation")
	ErrTransactionState = errors.New("transaction state")
	ErrDivision         = errors.New("division error")
)

func wrapf(kind error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))
}

func Syntaxf(format string, args ...any) error { return wrapf(ErrSyntax, format, args...) }

func Unsupportedf(format string, args ...any) error { return wrapf(ErrUnsupported, format, args...) }

func NoSuchTable(name string) error { return wrapf(ErrNoSuchTable, "%s", name) }

func DuplicateTable(name string) error { return wrapf(ErrDuplicateTable, "%s", name) }

func ColumnNotFound(name string) error { return wrapf(ErrColumnNotFound, "%s", name) }

func TypeMismatchf(format string, args ...any) error { return wrapf(ErrTypeMismatch, format, args...) }

// NotNullColumn reports a NULL value reaching the named non-nullable column.
func NotNullColumn(column string) error { return wrapf(ErrNotNull, "column %s", column) }

func Integrityf(format string, args ...any) error { return wrapf(ErrIntegrity, format, args...) }

func TransactionStatef(format string, args ...any) error {
	return wrapf(ErrTransactionState, format, args...)
}

func Divisionf(format string, args ...any) error { return wrapf(ErrDivision, format, args...) }
