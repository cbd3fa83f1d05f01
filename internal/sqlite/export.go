// This file implements JSONL export and import of the whole dataset.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/crm/pkg/types"
)

// jsonlTableMapping maps JSONL filenames to their SQLite tables and column
// lists. Tables with foreign keys come after the tables they reference.
var jsonlTableMapping = []struct {
	file    string
	table   string
	columns []string
}{
	{"clients.jsonl", types.TableClients, strings.Split(clientColumns, ", ")},
	{"contacts.jsonl", types.TableContacts, strings.Split(contactColumns, ", ")},
	{"activities.jsonl", types.TableActivities, strings.Split(activityColumns, ", ")},
	{"opportunities.jsonl", types.TableOpportunities, strings.Split(opportunityColumns, ", ")},
}

// Export writes one JSONL file per table into dir and returns the number of
// rows written per table. Each file is replaced atomically.
func (b *Backend) Export(ctx context.Context, dir string) (map[string]int, error) {
	db, ctx, cancel, err := b.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating export dir: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning export transaction: %w", err)
	}
	defer tx.Rollback()

	counts := make(map[string]int, len(jsonlTableMapping))
	for _, m := range jsonlTableMapping {
		records, err := dumpTable(ctx, tx, m.table, m.columns)
		if err != nil {
			return nil, err
		}
		if err := writeJSONL(filepath.Join(dir, m.file), records); err != nil {
			return nil, fmt.Errorf("writing %s: %w", m.file, err)
		}
		counts[m.table] = len(records)
	}

	b.logger.Info("crm data exported", "dir", dir, "clients", counts[types.TableClients])
	return counts, nil
}

// dumpTable reads every row of table as a JSON object keyed by column name.
func dumpTable(ctx context.Context, q queryer, table string, columns []string) ([]json.RawMessage, error) {
	rows, err := q.QueryContext(ctx,
		fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", strings.Join(columns, ", "), table))
	if err != nil {
		return nil, fmt.Errorf("querying %s for JSONL: %w", table, err)
	}
	defer rows.Close()

	var records []json.RawMessage
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s row: %w", table, err)
		}
		rec := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				values[i] = string(b)
			}
			rec[col] = values[i]
		}
		data, err := json.Marshal(rec)
		if err != nil {
			return nil, fmt.Errorf("marshaling %s row: %w", table, err)
		}
		records = append(records, data)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s for JSONL: %w", table, err)
	}
	return records, nil
}

// Import loads the JSONL files found in dir in one transaction and returns
// the number of rows inserted per table. Missing files are skipped, as are
// malformed lines and rows that violate a constraint (for example an ID
// that is already stored, or a child whose client is absent). Unknown
// fields are ignored.
func (b *Backend) Import(ctx context.Context, dir string) (map[string]int, error) {
	db, ctx, cancel, err := b.conn(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	counts := make(map[string]int, len(jsonlTableMapping))
	for _, m := range jsonlTableMapping {
		records, err := readJSONL(filepath.Join(dir, m.file))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		n, err := insertRecords(ctx, tx, m.table, m.columns, records)
		if err != nil {
			return nil, fmt.Errorf("loading %s into %s: %w", m.file, m.table, err)
		}
		counts[m.table] = n
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing import transaction: %w", err)
	}
	b.logger.Info("crm data imported", "dir", dir, "clients", counts[types.TableClients])
	return counts, nil
}

// insertRecords inserts parsed JSONL records into table. Only the listed
// columns are read from each record; columns absent from a record take
// their schema default.
func insertRecords(ctx context.Context, tx *sql.Tx, table string, columns []string, records []json.RawMessage) (int, error) {
	inserted := 0
	for _, rec := range records {
		var obj map[string]any
		if err := json.Unmarshal(rec, &obj); err != nil {
			continue
		}
		var cols []string
		var args []any
		for _, col := range columns {
			if v, ok := obj[col]; ok {
				cols = append(cols, col)
				args = append(args, v)
			}
		}
		if len(cols) == 0 {
			continue
		}
		_, err := tx.ExecContext(ctx, fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			table, strings.Join(cols, ", "), placeholders(len(cols)),
		), args...)
		if err != nil {
			if ctx.Err() != nil {
				return inserted, ctx.Err()
			}
			continue
		}
		inserted++
	}
	return inserted, nil
}
