// Package dto holds the request bindings and response views of the HTTP API.
// Views come in two audiences per entity: a public one and a detailed one
// for owners and managers.
package dto

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/xiebiao/pubflow/internal/domain/shared"
	apperrors "github.com/xiebiao/pubflow/pkg/errors"
)

// TimeLayout is the wire format of every timestamp.
const TimeLayout = time.RFC3339

const dateLayout = "2006-01-02"

// Field errors name the wire field (json, then form tag) instead of the Go one.
func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(wireName)
	}
}

func wireName(f reflect.StructField) string {
	for _, key := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(key), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}

// PageQuery binds ?page=&page_size=.
type PageQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100" example:"20"`
}

func (q PageQuery) ToPage() shared.Page {
	return shared.Page{Page: q.Page, PageSize: q.PageSize}
}

// StatusPageQuery adds an optional status filter.
type StatusPageQuery struct {
	PageQuery
	Status string `form:"status" binding:"omitempty,max=20" example:"SUBMITTED"`
}

// ListResponse is the page envelope for list endpoints.
type ListResponse[T any] struct {
	List       []T   `json:"list"`
	Total      int64 `json:"total" example:"42"`
	Page       int   `json:"page" example:"1"`
	PageSize   int   `json:"page_size" example:"20"`
	TotalPages int   `json:"total_pages" example:"3"`
}

func NewListResponse[T any](list []T, total int64, page shared.Page) *ListResponse[T] {
	if list == nil {
		list = []T{}
	}
	var pages int
	if page.PageSize > 0 {
		pages = int((total + int64(page.PageSize) - 1) / int64(page.PageSize))
	}
	return &ListResponse[T]{List: list, Total: total, Page: page.Page, PageSize: page.PageSize, TotalPages: pages}
}

// BindError turns a gin binding failure into a 400 carrying per-field messages.
func BindError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.ErrBindError.WithCause(err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[snakeCase(fe.Field())] = fieldMessage(fe)
	}
	return apperrors.ErrBindError.WithFields(fields)
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + fe.Param()
	case "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be a valid email"
	case "url":
		return "must be a valid URL"
	case "dive", "gt":
		return "is invalid"
	}
	return "failed " + fe.Tag() + " check"
}

func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ParseDate accepts RFC 3339 timestamps and plain dates; "" yields nil.
func ParseDate(field, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, dateLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, apperrors.New(apperrors.ErrCodeInvalidDate, "invalid date").
		WithFields(map[string]string{field: "must be YYYY-MM-DD or RFC 3339"})
}

// ParseDates parses several optional dates and merges their field errors.
func ParseDates(values map[string]string) (map[string]*time.Time, error) {
	out := make(map[string]*time.Time, len(values))
	fields := map[string]string{}
	for field, v := range values {
		t, err := ParseDate(field, v)
		if err != nil {
			for k, msg := range apperrors.GetAppError(err).Fields {
				fields[k] = msg
			}
			continue
		}
		out[field] = t
	}
	if len(fields) > 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidDate, "invalid date").WithFields(fields)
	}
	return out, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(TimeLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := formatTime(*t)
	return &s
}
