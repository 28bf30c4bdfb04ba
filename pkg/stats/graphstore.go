package stats

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/OFFIS-RIT/lodstats/pkg/triple"
)

// graphStore is a throwaway in-memory SQLite database holding the triples of
// a single file. Triples are kept with set semantics: inserting the same
// statement twice stores it once, like any RDF graph.
type graphStore struct {
	db   *sql.DB
	conn *sql.Conn

	tx   *sql.Tx
	stmt *sql.Stmt
}

func openGraphStore(ctx context.Context) (*graphStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open graph store: %w", err)
	}
	// Every connection to ":memory:" is a separate database, so all work
	// is pinned to one connection.
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to graph store: %w", err)
	}

	g := &graphStore{db: db, conn: conn}
	if _, err := conn.ExecContext(ctx, graphSchemaSQL); err != nil {
		g.Close()
		return nil, fmt.Errorf("failed to initialize graph schema: %w", err)
	}

	g.tx, err = conn.BeginTx(ctx, nil)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("failed to begin load: %w", err)
	}
	g.stmt, err = g.tx.PrepareContext(ctx, insertTripleSQL)
	if err != nil {
		g.Close()
		return nil, fmt.Errorf("failed to prepare insert: %w", err)
	}

	return g, nil
}

func (g *graphStore) Add(ctx context.Context, t triple.Triple) error {
	_, err := g.stmt.ExecContext(ctx,
		t.Subject.Key(), t.Subject.Label(), literalFlag(t.Subject),
		t.Predicate.Key(), t.Predicate.Label(),
		t.Object.Key(), t.Object.Label(), literalFlag(t.Object),
	)
	return err
}

func literalFlag(t triple.Term) int {
	if t.IsLiteral() {
		return 1
	}
	return 0
}

// Seal commits the loaded triples. The store is read-only afterwards.
func (g *graphStore) Seal() error {
	if g.stmt != nil {
		g.stmt.Close()
		g.stmt = nil
	}
	if g.tx == nil {
		return nil
	}
	err := g.tx.Commit()
	g.tx = nil
	return err
}

func (g *graphStore) Close() error {
	if g.stmt != nil {
		g.stmt.Close()
	}
	if g.tx != nil {
		g.tx.Rollback()
	}
	if g.conn != nil {
		g.conn.Close()
	}
	return g.db.Close()
}

func (g *graphStore) strings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := g.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (g *graphStore) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := g.conn.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

const graphSchemaSQL = `
CREATE TABLE triples (
	s_key   TEXT NOT NULL,
	s_label TEXT NOT NULL,
	s_lit   INTEGER NOT NULL,
	p_key   TEXT NOT NULL,
	p_label TEXT NOT NULL,
	o_key   TEXT NOT NULL,
	o_label TEXT NOT NULL,
	o_lit   INTEGER NOT NULL,
	UNIQUE (s_key, p_key, o_key)
);

CREATE INDEX triples_p ON triples (p_key);
`

const insertTripleSQL = `
INSERT OR IGNORE INTO triples (s_key, s_label, s_lit, p_key, p_label, o_key, o_label, o_lit)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

const classesSQL = `SELECT o_label FROM triples WHERE p_key = ? ORDER BY rowid`

const typedEntitiesSQL = `SELECT s_label FROM triples WHERE p_key = ? ORDER BY rowid`

const propertiesSQL = `SELECT p_label FROM triples ORDER BY rowid`

const literalsSQL = `SELECT o_label FROM triples WHERE o_lit = 1 ORDER BY rowid`

const connectionsSQL = `SELECT count(*) FROM triples WHERE s_lit = 0 AND o_lit = 0`

const connectedVerticesSQL = `
SELECT count(*) FROM (
	SELECT s_key FROM triples
	UNION
	SELECT o_key FROM triples WHERE o_lit = 0
)
`

const literalDegreeSQL = `
SELECT count(*), coalesce(sum(n), 0) FROM (
	SELECT count(*) AS n FROM triples
	WHERE s_lit = 0 AND o_lit = 1
	GROUP BY s_key
)
`
