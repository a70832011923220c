package dataset

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresLoader reads tables from one schema of a PostgreSQL database.
type PostgresLoader struct {
	sqlTableReader
	schema string
	host   string
}

// NewPostgresLoader connects to the database described by connStr.
// schemaName defaults to "public".
func NewPostgresLoader(ctx context.Context, connStr, schemaName string) (*PostgresLoader, error) {
	if connStr == "" {
		return nil, fmt.Errorf("postgres connection string cannot be empty")
	}
	if schemaName == "" {
		schemaName = "public"
	}

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresLoader{
		sqlTableReader: sqlTableReader{db: db},
		schema:         schemaName,
		host:           connHost(connStr),
	}, nil
}

// NewPostgresLoaderFromDB wraps an existing connection pool. Close closes db.
func NewPostgresLoaderFromDB(db *sql.DB, schemaName string) *PostgresLoader {
	if schemaName == "" {
		schemaName = "public"
	}
	return &PostgresLoader{
		sqlTableReader: sqlTableReader{db: db},
		schema:         schemaName,
	}
}

// Source implements Loader. Credentials are never included.
func (l *PostgresLoader) Source() string {
	if l.host != "" {
		return fmt.Sprintf("postgres:%s/%s", l.host, l.schema)
	}
	return "postgres:" + l.schema
}

// LoadTable implements Loader.
func (l *PostgresLoader) LoadTable(ctx context.Context, name string) (*Table, error) {
	var found string
	err := l.db.QueryRowContext(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1 AND table_name = $2
	`, l.schema, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s.%s", ErrTableNotFound, l.schema, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up table %s.%s: %w", l.schema, name, err)
	}

	query := fmt.Sprintf("SELECT * FROM %s.%s", pq.QuoteIdentifier(l.schema), pq.QuoteIdentifier(name))
	return l.readTable(ctx, name, query)
}

// Close implements Loader.
func (l *PostgresLoader) Close() error {
	return l.db.Close()
}

// connHost extracts host[:port] from a URL or key/value connection string.
func connHost(connStr string) string {
	if parsed, err := pq.ParseURL(connStr); err == nil {
		connStr = parsed
	}
	host, port := "", ""
	for _, kv := range splitConnFields(connStr) {
		switch kv[0] {
		case "host":
			host = kv[1]
		case "port":
			port = kv[1]
		}
	}
	if host != "" && port != "" {
		return host + ":" + port
	}
	return host
}

// splitConnFields splits "k1=v1 k2='v 2'" into pairs. Quoted values may
// contain spaces.
func splitConnFields(s string) [][2]string {
	var out [][2]string
	i := 0
	for i < len(s) {
		for i < len(s) && s[i] == ' ' {
			i++
		}
		start := i
		for i < len(s) && s[i] != '=' && s[i] != ' ' {
			i++
		}
		if i >= len(s) || s[i] != '=' {
			break
		}
		key := s[start:i]
		i++

		var val []byte
		if i < len(s) && s[i] == '\'' {
			i++
			for i < len(s) && s[i] != '\'' {
				if s[i] == '\\' && i+1 < len(s) {
					i++
				}
				val = append(val, s[i])
				i++
			}
			i++
		} else {
			for i < len(s) && s[i] != ' ' {
				val = append(val, s[i])
				i++
			}
		}
		out = append(out, [2]string{key, string(val)})
	}
	return out
}
