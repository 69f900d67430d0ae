// Package relational implements the Connector contract over
// database/sql, for any backend reachable through a driver registered
// with that package (mysql, postgres).
package relational

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/dbshell/dbshell/internal/connector"
	"github.com/dbshell/dbshell/internal/value"
)

// Connector is the relational implementation of connector.Connector. It
// runs query text as raw SQL rather than through the lexer/parser/plan
// pipeline, which is specific to the document-store query sublanguage.
type Connector struct {
	db     *sql.DB
	driver string
	info   connector.Info
}

func driverFor(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", errors.Wrapf(err, "invalid connection string %s", uri)
	}
	switch strings.ToLower(u.Scheme) {
	case "mysql":
		return "mysql", nil
	case "postgres", "postgresql":
		return "postgres", nil
	default:
		return "", errors.Newf("unsupported connection scheme %q", u.Scheme)
	}
}

// Connect opens uri and verifies reachability with a Ping.
func Connect(ctx context.Context, uri string) (*Connector, error) {
	driver, err := driverFor(uri)
	if err != nil {
		return nil, err
	}

	dsn := uri
	if driver == "mysql" {
		dsn = strings.TrimPrefix(uri, "mysql://")
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open connection to %s", uri)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to connect to the database at %s", uri)
	}

	u, _ := url.Parse(uri)
	database := strings.TrimPrefix(u.Path, "/")

	return &Connector{
		db:     db,
		driver: driver,
		info: connector.Info{
			URI:      uri,
			Host:     u.Host,
			Database: database,
			Kind:     connector.Relational,
		},
	}, nil
}

func (c *Connector) Info() connector.Info { return c.info }

func (c *Connector) SetDatabase(ctx context.Context, name string) error {
	stmt := "USE " + name
	if c.driver == "postgres" {
		return errors.New("switching database on a live postgres connection is not supported; reconnect with a new URI")
	}
	if _, err := c.db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrapf(err, "failed to switch to database %s", name)
	}
	c.info.Database = name
	return nil
}

func (c *Connector) SetConnection(ctx context.Context, uri string) (connector.Info, error) {
	next, err := Connect(ctx, uri)
	if err != nil {
		return connector.Info{}, err
	}
	_ = c.db.Close()
	*c = *next
	return c.info, nil
}

// GetData runs queryText as raw SQL with a page-bounding LIMIT appended.
// It executes the statement twice: once decoded into Go-native types,
// once decoded as text, and zips the two so any column the typed pass
// can't map falls back to its textual form rather than failing the
// whole row.
func (c *Connector) GetData(ctx context.Context, queryText string, page connector.Pagination) ([]value.Object, error) {
	stmt := paginate(queryText, page)

	typedRows, cols, err := c.query(ctx, stmt, false)
	if err != nil {
		return nil, err
	}
	textRows, _, err := c.query(ctx, stmt, true)
	if err != nil {
		return nil, err
	}

	out := make([]value.Object, 0, len(typedRows))
	for i, row := range typedRows {
		b := value.NewObject()
		for j, col := range cols {
			v := row[j]
			if v.Kind == value.KindNull && i < len(textRows) && textRows[i][j].Kind != value.KindNull {
				v = textRows[i][j]
			}
			b.Set(col, v)
		}
		out = append(out, b.Build())
	}
	return out, nil
}

// paginate strips a trailing semicolon (and surrounding whitespace) from
// queryText and appends a LIMIT clause sized to the requested page.
func paginate(queryText string, page connector.Pagination) string {
	q := strings.TrimRight(strings.TrimSpace(queryText), "; \t\n")
	limit := page.Limit
	if limit == 0 {
		limit = 100
	}
	if page.Start > 0 {
		return fmt.Sprintf("%s LIMIT %d OFFSET %d", q, limit, page.Start)
	}
	return fmt.Sprintf("%s LIMIT %d", q, limit)
}

func (c *Connector) query(ctx context.Context, stmt string, asText bool) ([][]value.Value, []string, error) {
	rows, err := c.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]value.Value
	for rows.Next() {
		if asText {
			dest := make([]any, len(cols))
			raw := make([]sql.NullString, len(cols))
			for i := range dest {
				dest[i] = &raw[i]
			}
			if err := rows.Scan(dest...); err != nil {
				return nil, nil, err
			}
			row := make([]value.Value, len(cols))
			for i, r := range raw {
				if !r.Valid {
					row[i] = value.Null
					continue
				}
				row[i] = value.String(r.String)
			}
			out = append(out, row)
			continue
		}

		dest := make([]any, len(cols))
		raw := make([]any, len(cols))
		for i := range dest {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, nil, err
		}
		row := make([]value.Value, len(cols))
		for i, v := range raw {
			row[i] = fromNative(v)
		}
		out = append(out, row)
	}
	return out, cols, rows.Err()
}

// fromNative converts a database/sql-decoded column value into the
// dynamic value model shared with the document-store connector.
func fromNative(v any) value.Value {
	switch t := v.(type) {
	case nil:
		return value.Null
	case bool:
		return value.Bool_(t)
	case int64:
		return value.Int64(t)
	case int32:
		return value.Int32(t)
	case float64:
		return value.Float64(t)
	case float32:
		return value.Float64(float64(t))
	case []byte:
		return value.String(string(t))
	case string:
		return value.String(t)
	case time.Time:
		return value.DateTime(t)
	default:
		return value.String(fmt.Sprintf("%v", t))
	}
}
