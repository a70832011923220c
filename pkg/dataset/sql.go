package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
)

// sqlTableReader is the database/sql plumbing shared by the SQLite and
// PostgreSQL loaders.
type sqlTableReader struct {
	db *sql.DB
}

// readTable runs query and materialises the result set as a Table.
func (r *sqlTableReader) readTable(ctx context.Context, name, query string) (*Table, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query table %q: %w", name, err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, fmt.Errorf("failed to read column types for %q: %w", name, err)
	}

	columns := make([]string, len(colTypes))
	dbTypes := make([]string, len(colTypes))
	for i, ct := range colTypes {
		columns[i] = ct.Name()
		dbTypes[i] = strings.ToUpper(ct.DatabaseTypeName())
	}

	t := NewTable(name, columns)
	raw := make([]any, len(columns))
	dest := make([]any, len(columns))
	for i := range raw {
		dest[i] = &raw[i]
	}

	for n := 0; rows.Next(); n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan row %d of %q: %w", n+1, name, err)
		}

		values := make([]any, len(raw))
		for i, v := range raw {
			values[i] = convertSQLValue(v, dbTypes[i])
		}
		t.AppendValues(values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rows of %q: %w", name, err)
	}
	return t, nil
}

// convertSQLValue maps driver values onto the runtime types the validator
// classifies: int64, float64, bool, string, time.Time and nil.
func convertSQLValue(v any, dbType string) any {
	switch val := v.(type) {
	case []byte:
		return convertText(string(val), dbType)
	case string:
		return convertText(val, dbType)
	case int64:
		if dbType == "BOOL" || dbType == "BOOLEAN" {
			return val != 0
		}
		return val
	case int:
		return int64(val)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return val
	}
}

func convertText(s, dbType string) any {
	switch dbType {
	case "NUMERIC", "DECIMAL":
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	case "BOOL", "BOOLEAN":
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return s
}

// quoteIdentifier quotes an SQL identifier with double quotes.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
