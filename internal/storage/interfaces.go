// Package storage provides repository interfaces for data access abstraction.
// These interfaces decouple the chat pipeline from the concrete SQL store.
package storage

import (
	"context"

	"github.com/abccollege/college-chatbot-go/internal/intent"
)

// InfoRepository looks up department info for an intent.
type InfoRepository interface {
	// FindInfo returns one record per matching department. An empty
	// department selects every row.
	FindInfo(ctx context.Context, in intent.Intent, dept intent.Department) ([]InfoRecord, error)
}

// InfoWriter persists info table rows.
type InfoWriter interface {
	SaveInfoRecords(ctx context.Context, rows []CollegeInfo) error
	CountInfoRecords(ctx context.Context) (int, error)
}

// Pinger reports whether the store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Compile-time checks
var (
	_ InfoRepository = (*DB)(nil)
	_ InfoWriter     = (*DB)(nil)
	_ Pinger         = (*DB)(nil)
)
