package repo

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint breach.
const uniqueViolation = pq.ErrorCode("23505")

// isDuplicateKeyConflict reports whether err is the store's duplicate-key
// signal. Alternate storage back-ends plug in here by mapping their own
// conflict signal onto this check.
func isDuplicateKeyConflict(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolation
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "23505") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "unique constraint")
}
