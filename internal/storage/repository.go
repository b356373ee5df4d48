package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"

	domerrors "github.com/abccollege/college-chatbot-go/internal/errors"
	"github.com/abccollege/college-chatbot-go/internal/intent"
)

// intentColumns is the only source of column names in info queries.
var intentColumns = map[intent.Intent]string{
	intent.IntentFees:         "fees_structure",
	intent.IntentEligibility:  "eligibility_criteria",
	intent.IntentScholarships: "scholarships",
}

// ColumnFor returns the info column that answers in.
func ColumnFor(in intent.Intent) (string, bool) {
	col, ok := intentColumns[in]
	return col, ok
}

const slowQueryThreshold = 100 * time.Millisecond

// FindInfo selects the department name and the intent's column, filtered
// to dept when one is given. Each call checks out its own connection and
// returns it before returning.
func (db *DB) FindInfo(ctx context.Context, in intent.Intent, dept intent.Department) ([]InfoRecord, error) {
	w := domerrors.NewWrapper("storage", "find_info")

	column, ok := ColumnFor(in)
	if !ok {
		return nil, w.Wrapf(domerrors.KindRepositoryQuery, "intent %q: %w", in, domerrors.ErrUnknownIntent)
	}

	q := db.builder.Select("name", column).From(db.table)
	if dept != intent.DepartmentNone {
		q = q.Where(sq.Eq{"name": dept.String()})
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, w.Wrap(domerrors.KindRepositoryQuery, fmt.Errorf("build query: %w", err))
	}

	start := time.Now()
	records, err := db.findInfo(ctx, w, query, args)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "error"
		slog.ErrorContext(ctx, "info lookup failed",
			"intent", in.String(),
			"department", dept.String(),
			"error", err)
	} else if duration > slowQueryThreshold {
		slog.WarnContext(ctx, "slow database operation",
			"operation", "FindInfo",
			"duration_ms", duration.Milliseconds(),
			"intent", in.String())
	}
	if db.metrics != nil {
		db.metrics.RecordRepositoryQuery(in.String(), status, duration)
	}

	if err != nil {
		return nil, err
	}
	return records, nil
}

func (db *DB) findInfo(ctx context.Context, w *domerrors.Wrapper, query string, args []any) ([]InfoRecord, error) {
	conn, err := db.conn.Conn(ctx)
	if err != nil {
		return nil, w.Wrap(domerrors.KindRepositoryConnection, fmt.Errorf("acquire connection: %w", err))
	}
	defer func() { _ = conn.Close() }()

	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, w.Wrap(domerrors.KindRepositoryQuery, fmt.Errorf("query: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var records []InfoRecord
	for rows.Next() {
		var name string
		var value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return nil, w.Wrap(domerrors.KindRepositoryQuery, fmt.Errorf("scan: %w", err))
		}
		records = append(records, InfoRecord{Department: name, Value: value.String})
	}
	if err := rows.Err(); err != nil {
		return nil, w.Wrap(domerrors.KindRepositoryQuery, fmt.Errorf("rows: %w", err))
	}
	return records, nil
}

// SaveInfoRecords inserts or updates rows in a single transaction.
func (db *DB) SaveInfoRecords(ctx context.Context, rows []CollegeInfo) error {
	if len(rows) == 0 {
		return nil
	}

	ins := db.builder.Insert(db.table).
		Columns("name", "fees_structure", "eligibility_criteria", "scholarships")
	for _, r := range rows {
		ins = ins.Values(r.Name, r.FeesStructure, r.EligibilityCriteria, r.Scholarships)
	}
	query, args, err := ins.Suffix(`ON CONFLICT (name) DO UPDATE SET
			fees_structure = excluded.fees_structure,
			eligibility_criteria = excluded.eligibility_criteria,
			scholarships = excluded.scholarships`).ToSql()
	if err != nil {
		return fmt.Errorf("build upsert: %w", err)
	}

	start := time.Now()
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		slog.ErrorContext(ctx, "failed to save info records",
			"count", len(rows),
			"error", err)
		return fmt.Errorf("failed to save info records: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit info records: %w", err)
	}

	if duration := time.Since(start); duration > slowQueryThreshold {
		slog.WarnContext(ctx, "slow database operation",
			"operation", "SaveInfoRecords",
			"duration_ms", duration.Milliseconds(),
			"count", len(rows))
	}
	return nil
}

// CountInfoRecords returns the number of rows in the info table.
func (db *DB) CountInfoRecords(ctx context.Context) (int, error) {
	query, args, err := db.builder.Select("COUNT(*)").From(db.table).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var count int
	if err := db.conn.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count info records: %w", err)
	}
	return count, nil
}
