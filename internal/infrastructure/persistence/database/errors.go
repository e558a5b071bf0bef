package database

import (
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/xiebiao/pubflow/internal/domain/shared"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

// isDuplicateError reports a unique index violation on any supported driver.
// TranslateError covers most cases; the message checks catch drivers that do
// not translate.
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || // mysql 1062
		strings.Contains(msg, "SQLSTATE 23505") || // postgres
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed") // sqlite
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// dbError hides a driver error behind a database error code; the cause is
// logged, never serialized.
func dbError(err error, message string) error {
	return &apperrors.AppError{Code: apperrors.ErrCodeDatabaseError, Message: message, Err: err}
}

// paginate counts q, then scans one ordered page into dest. Ordering is
// applied after the count so PostgreSQL accepts the aggregate.
func paginate(q *gorm.DB, order string, page shared.Page, dest interface{}) (int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return 0, err
	}
	page = page.Normalize(shared.DefaultPageSize)
	if err := q.Order(order).Limit(page.PageSize).Offset(page.Offset()).Find(dest).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil || string(b) == "null" {
		return nil
	}
	return datatypes.JSON(b)
}

// fromJSON decodes a JSON column. A corrupt value leaves dest unset and is
// logged rather than failing the read.
func fromJSON(column string, raw datatypes.JSON, dest interface{}) {
	if len(raw) == 0 {
		return
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		slog.Warn("decode json column failed", "column", column, "error", err)
	}
}
