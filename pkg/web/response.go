// Package web defines common components for a web application.
package web

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/go-playground/validator/v10"
)

// JSONError provides type for explicit json encoded error response.
type JSONError struct {
	Error string `json:"error"`
}

// Error wraps a given err into json frinedly struct.
func Error(err error) JSONError {
	return JSONError{Error: err.Error()}
}

// ErrorMsg wraps a given message into json frinedly struct.
func ErrorMsg(msg string) JSONError {
	return JSONError{Error: msg}
}

// Page holds one page of a paginated listing.
type Page struct {
	Count    int64   `json:"count"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
	Results  any     `json:"results"`
}

// NewPage builds a Page for the request URL u, linking to neighbour pages when they exist.
func NewPage(u *url.URL, count int64, page, pageSize int32, results any) Page {
	p := Page{Count: count, Results: results}

	if int64(page)*int64(pageSize) < count {
		next := pageURL(u, page+1)
		p.Next = &next
	}

	if page > 1 {
		prev := pageURL(u, page-1)
		p.Previous = &prev
	}

	return p
}

func pageURL(u *url.URL, page int32) string {
	q := u.Query()
	q.Set("page", strconv.Itoa(int(page)))

	ref := *u
	ref.RawQuery = q.Encode()

	return ref.RequestURI()
}

// GetErrorMsg returns a human readable message for the failed validation of a field.
func GetErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return " is required"
	case "min":
		return fmt.Sprintf(" must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf(" must be at most %s", fe.Param())
	case "oneof":
		return fmt.Sprintf(" must be one of [%s]", fe.Param())
	case "money":
		return " must be a decimal number with at most 2 decimal places"
	}

	return " is invalid"
}
