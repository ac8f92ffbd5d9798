// Package index exports the post-collection state and per-call-site
// resolution outcomes to an on-disk sqlite database for editor tooling.
// The engine never reads the database back; it is a write-only side
// channel behind a CLI flag.
package index

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/lumenlang/lumen/internal/config"
	"github.com/lumenlang/lumen/internal/extensions"
	"github.com/lumenlang/lumen/internal/resolve"
	"github.com/lumenlang/lumen/internal/typedesc"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
CREATE TABLE IF NOT EXISTS blocks (
    session_id TEXT NOT NULL REFERENCES sessions(id),
    seq INTEGER NOT NULL,
    unit TEXT NOT NULL,
    target TEXT NOT NULL,
    alias TEXT NOT NULL,
    file TEXT NOT NULL,
    line INTEGER NOT NULL,
    PRIMARY KEY (session_id, seq)
);
CREATE TABLE IF NOT EXISTS methods (
    session_id TEXT NOT NULL REFERENCES sessions(id),
    block_seq INTEGER NOT NULL,
    name TEXT NOT NULL,
    visibility TEXT NOT NULL,
    file TEXT NOT NULL,
    line INTEGER NOT NULL,
    PRIMARY KEY (session_id, block_seq, name)
);
CREATE TABLE IF NOT EXISTS resolutions (
    session_id TEXT NOT NULL REFERENCES sessions(id),
    unit TEXT NOT NULL,
    site TEXT NOT NULL,
    receiver TEXT NOT NULL,
    method TEXT NOT NULL,
    outcome TEXT NOT NULL,
    tier TEXT NOT NULL,
    bound_to TEXT NOT NULL,
    candidates TEXT NOT NULL
);
`

// Exporter writes one session's worth of rows. Every run gets a fresh
// session id so repeated exports into one database stay distinguishable.
type Exporter struct {
	db      *sql.DB
	session string
}

// Open opens (creating if needed) the index database and starts a session.
func Open(path string) (*Exporter, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening index db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index schema: %w", err)
	}
	session := uuid.New().String()
	if config.IsTestMode {
		// Session ids are the one volatile column; pin them so test runs
		// produce byte-identical databases.
		session = uuid.Nil.String()
	}
	if _, err := db.Exec(`INSERT OR IGNORE INTO sessions (id) VALUES (?)`, session); err != nil {
		db.Close()
		return nil, fmt.Errorf("starting index session: %w", err)
	}
	return &Exporter{db: db, session: session}, nil
}

// Session returns the session id rows of this run are tagged with.
func (e *Exporter) Session() string { return e.session }

// ExportTable writes every registered block and method.
func (e *Exporter) ExportTable(table *extensions.Table) error {
	tx, err := e.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, b := range table.Blocks() {
		if _, err := tx.Exec(
			`INSERT INTO blocks (session_id, seq, unit, target, alias, file, line) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.session, b.Seq(), string(b.Unit), b.Target.String(), b.Alias, b.File, b.Token.Line,
		); err != nil {
			return fmt.Errorf("exporting block %s: %w", b.DisplayName(), err)
		}
		for _, m := range b.Methods {
			vis := "private"
			if m.Visibility == extensions.Public {
				vis = "public"
			}
			if _, err := tx.Exec(
				`INSERT INTO methods (session_id, block_seq, name, visibility, file, line) VALUES (?, ?, ?, ?, ?, ?)`,
				e.session, b.Seq(), m.Name, vis, m.File, m.Token.Line,
			); err != nil {
				return fmt.Errorf("exporting method %s: %w", m.Origin(), err)
			}
		}
	}
	return tx.Commit()
}

// ExportResolution records one call site's outcome.
func (e *Exporter) ExportResolution(unit, site string, receiver typedesc.Descriptor, method string, r resolve.Resolution) error {
	outcome := "resolved"
	boundTo := ""
	candidates := ""
	switch r.Kind {
	case resolve.Resolved:
		boundTo = r.Method.Origin()
	case resolve.Ambiguous:
		outcome = "ambiguous"
		for i, c := range r.Candidates {
			if i > 0 {
				candidates += ", "
			}
			candidates += c.Origin()
		}
	case resolve.NotFound:
		outcome = "not_found"
	}
	recv := ""
	if receiver != nil {
		recv = receiver.String()
	}
	_, err := e.db.Exec(
		`INSERT INTO resolutions (session_id, unit, site, receiver, method, outcome, tier, bound_to, candidates) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.session, unit, site, recv, method, outcome, r.Tier.String(), boundTo, candidates,
	)
	if err != nil {
		return fmt.Errorf("exporting resolution of %s: %w", method, err)
	}
	return nil
}

func (e *Exporter) Close() error {
	return e.db.Close()
}
