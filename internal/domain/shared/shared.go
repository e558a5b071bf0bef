// Package shared holds the value types and ports every workflow aggregate uses.
package shared

import (
	"context"
	"strings"
)

// Priority orders work queues. Stored as its upper-case name.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// ParsePriority accepts any letter case; an empty string yields MEDIUM.
func ParsePriority(s string) (Priority, bool) {
	if strings.TrimSpace(s) == "" {
		return PriorityMedium, true
	}
	p := Priority(strings.ToUpper(strings.TrimSpace(s)))
	return p, p.Valid()
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank is higher for more urgent work.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// Page is a 1-based pagination window.
type Page struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps the window; size 0 falls back to defaultSize.
func (p Page) Normalize(defaultSize int) Page {
	if defaultSize <= 0 {
		defaultSize = DefaultPageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

// Offset is the number of rows to skip.
func (p Page) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Transactor runs fn in one database transaction; repositories called with
// the ctx passed to fn take part in it.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}
