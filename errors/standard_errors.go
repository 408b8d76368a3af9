// errors/standard_errors.go
package errors

import "errors"

var (
	ErrUnknownIdentifier   = errors.New("unknown control identifier")
	ErrDuplicateIdentifier = errors.New("duplicate control identifier")
	ErrStandardNotFound    = errors.New("standard not found")
	ErrStandardConflict    = errors.New("standard already exists")
	ErrInvalidStandardData = errors.New("invalid standard data")
	ErrDatabaseOperation   = errors.New("database operation failed")
	ErrInternalServer      = errors.New("internal server error")
	ErrInvalidPagination   = errors.New("invalid pagination parameters")
)
