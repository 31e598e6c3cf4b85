// Package errorspkg provides common app errors.
package errorspkg

import "errors"

// ErrInternal indicates internal server error.
//
// Repositories return it in place of unexpected driver errors, after logging them.
var ErrInternal = errors.New("internal")
