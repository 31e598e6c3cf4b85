package web

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// Pagination limits shared by all listings.
const (
	DefaultPageSize int32 = 10
	MaxPageSize     int32 = 100
)

// PageQuery holds the pagination query parameters of a listing request.
type PageQuery struct {
	Page     int32 `form:"page" binding:"omitempty,min=1"`
	PageSize int32 `form:"page_size" binding:"omitempty,min=1"`
}

// Normalize applies defaults and caps the page size.
func (q *PageQuery) Normalize() {
	if q.Page == 0 {
		q.Page = 1
	}

	switch {
	case q.PageSize == 0:
		q.PageSize = DefaultPageSize
	case q.PageSize > MaxPageSize:
		q.PageSize = MaxPageSize
	}
}

// OutOfRange reports whether the page lies past the last one. The first page always exists.
func (q PageQuery) OutOfRange(count int64) bool {
	return q.Page > 1 && int64(q.Page-1)*int64(q.PageSize) >= count
}

// ErrInvalidPage indicates that the requested page does not exist.
var ErrInvalidPage = errors.New("invalid page")

// BindError converts a request binding error into a json friendly struct.
func BindError(err error) JSONError {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) && len(ve) > 0 {
		field := ve[0]
		return ErrorMsg(field.Field() + GetErrorMsg(field))
	}

	return Error(err)
}
