package sqlite

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	_ "modernc.org/sqlite"

	"github.com/cognicore/wormsner/pkg/wormsner/internalerr"
	"github.com/cognicore/wormsner/pkg/wormsner/match"
	"github.com/cognicore/wormsner/pkg/wormsner/trie"
)

// Store keeps a trie and the results of match runs in SQLite.
type Store struct {
	db *sql.DB

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// OpenSQLite opens a SQLite database with WAL mode enabled.
func OpenSQLite(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, err
	}

	if err := initSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:      db,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// initSchema creates tables if they don't exist
func initSchema(ctx context.Context, db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS trie_nodes (
	id INTEGER PRIMARY KEY,
	parent_id INTEGER,
	token TEXT NOT NULL,
	UNIQUE(parent_id, token),
	FOREIGN KEY(parent_id) REFERENCES trie_nodes(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS trie_entries (
	node_id INTEGER NOT NULL,
	seq INTEGER NOT NULL,
	entity_id TEXT NOT NULL,
	rank TEXT NOT NULL,
	PRIMARY KEY(node_id, seq),
	FOREIGN KEY(node_id) REFERENCES trie_nodes(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS match_runs (
	id TEXT PRIMARY KEY,
	index_path TEXT,
	started_at TEXT NOT NULL,
	finished_at TEXT,
	documents INTEGER NOT NULL DEFAULT 0,
	matches INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS matches (
	run_id TEXT NOT NULL,
	source TEXT NOT NULL,
	seq INTEGER NOT NULL,
	begin_token INTEGER NOT NULL,
	end_token INTEGER NOT NULL,
	ids TEXT NOT NULL,
	ranks TEXT NOT NULL,
	text TEXT NOT NULL,
	PRIMARY KEY(run_id, seq),
	FOREIGN KEY(run_id) REFERENCES match_runs(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_matches_source ON matches(run_id, source);
`
	_, err := db.ExecContext(ctx, schema)
	return err
}

// SaveTrie replaces the stored trie. Nodes get preorder ids with children in
// token order, so every parent id is smaller than its children's.
func (s *Store) SaveTrie(ctx context.Context, root *trie.Node) error {
	if root == nil {
		return fmt.Errorf("%w: nil trie", internalerr.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trie_entries`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM trie_nodes`); err != nil {
		return err
	}

	nodeStmt, err := tx.PrepareContext(ctx, `INSERT INTO trie_nodes (id, parent_id, token) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer nodeStmt.Close()

	entryStmt, err := tx.PrepareContext(ctx, `INSERT INTO trie_entries (node_id, seq, entity_id, rank) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer entryStmt.Close()

	var nextID int64
	var insert func(node *trie.Node, parent sql.NullInt64, token string) error
	insert = func(node *trie.Node, parent sql.NullInt64, token string) error {
		id := nextID
		nextID++
		if _, err := nodeStmt.ExecContext(ctx, id, parent, token); err != nil {
			return fmt.Errorf("insert node %d: %w", id, err)
		}
		ranks := node.Ranks()
		for seq, entityID := range node.IDs() {
			if _, err := entryStmt.ExecContext(ctx, id, seq, entityID, ranks[seq]); err != nil {
				return fmt.Errorf("insert entry %s: %w", entityID, err)
			}
		}
		for _, tok := range node.Tokens() {
			child, _ := node.Child(tok)
			if err := insert(child, sql.NullInt64{Int64: id, Valid: true}, tok); err != nil {
				return err
			}
		}
		return nil
	}
	if err := insert(root, sql.NullInt64{}, ""); err != nil {
		return err
	}

	return tx.Commit()
}

// LoadTrie rebuilds the stored trie. It returns internalerr.ErrNotFound when
// no trie has been saved.
func (s *Store) LoadTrie(ctx context.Context) (*trie.Node, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, parent_id, token FROM trie_nodes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	nodes := make(map[int64]*trie.Node)
	var root *trie.Node
	for rows.Next() {
		var (
			id     int64
			parent sql.NullInt64
			token  string
		)
		if err := rows.Scan(&id, &parent, &token); err != nil {
			return nil, err
		}
		if !parent.Valid {
			if root != nil {
				return nil, fmt.Errorf("%w: more than one root node", internalerr.ErrInvalidIndex)
			}
			root = trie.New()
			nodes[id] = root
			continue
		}
		p, ok := nodes[parent.Int64]
		if !ok {
			return nil, fmt.Errorf("%w: node %d has unknown parent %d", internalerr.ErrInvalidIndex, id, parent.Int64)
		}
		nodes[id] = p.Extend(token)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if root == nil {
		return nil, internalerr.ErrNotFound
	}

	entries, err := s.db.QueryContext(ctx, `SELECT node_id, entity_id, rank FROM trie_entries ORDER BY node_id, seq`)
	if err != nil {
		return nil, err
	}
	defer entries.Close()

	for entries.Next() {
		var (
			nodeID         int64
			entityID, rank string
		)
		if err := entries.Scan(&nodeID, &entityID, &rank); err != nil {
			return nil, err
		}
		node, ok := nodes[nodeID]
		if !ok {
			return nil, fmt.Errorf("%w: entry for unknown node %d", internalerr.ErrInvalidIndex, nodeID)
		}
		node.Append(entityID, rank)
	}
	return root, entries.Err()
}

func (s *Store) newRunID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ulid.MustNew(ulid.Now(), s.entropy).String()
}

// Run records the matches of one match-entities invocation.
type Run struct {
	store *Store
	id    string

	mu        sync.Mutex
	seq       int64
	documents int64
	matches   int64
}

// BeginRun inserts a new run row and returns its handle.
func (s *Store) BeginRun(ctx context.Context, indexPath string) (*Run, error) {
	id := s.newRunID()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO match_runs (id, index_path, started_at) VALUES (?, ?, ?)`,
		id, indexPath, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{store: s, id: id}, nil
}

// ID returns the run's ULID.
func (r *Run) ID() string { return r.id }

// Report stores the matches of one document. It implements report.Reporter.
func (r *Run) Report(ctx context.Context, source string, tokens []string, matches []match.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.documents++
	if len(matches) == 0 {
		return nil
	}

	tx, err := r.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO matches (run_id, source, seq, begin_token, end_token, ids, ranks, text)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	seq := r.seq
	for _, m := range matches {
		ids, err := json.Marshal(m.IDs)
		if err != nil {
			return err
		}
		ranks, err := json.Marshal(m.Ranks)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, r.id, source, seq, m.Begin, m.End, string(ids), string(ranks), m.Text(tokens)); err != nil {
			return fmt.Errorf("insert match: %w", err)
		}
		seq++
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	r.seq = seq
	r.matches += int64(len(matches))
	return nil
}

// Finish stamps the run with its end time and totals.
func (r *Run) Finish(ctx context.Context) error {
	r.mu.Lock()
	documents, matches := r.documents, r.matches
	r.mu.Unlock()

	res, err := r.store.db.ExecContext(ctx,
		`UPDATE match_runs SET finished_at=?, documents=?, matches=? WHERE id=?`,
		time.Now().UTC().Format(time.RFC3339Nano), documents, matches, r.id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: run %s", internalerr.ErrNotFound, r.id)
	}
	return nil
}

// RunInfo summarises a stored run.
type RunInfo struct {
	ID         string
	IndexPath  string
	StartedAt  time.Time
	FinishedAt time.Time
	Documents  int64
	Matches    int64
}

// StoredMatch is a match row read back from the database.
type StoredMatch struct {
	Source string
	match.Match
	Text string
}

const runColumns = `id, index_path, started_at, finished_at, documents, matches`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (RunInfo, error) {
	var (
		info              RunInfo
		indexPath         sql.NullString
		started, finished sql.NullString
	)
	if err := row.Scan(&info.ID, &indexPath, &started, &finished, &info.Documents, &info.Matches); err != nil {
		return RunInfo{}, err
	}
	info.IndexPath = indexPath.String
	if started.Valid {
		info.StartedAt, _ = time.Parse(time.RFC3339Nano, started.String)
	}
	if finished.Valid {
		info.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished.String)
	}
	return info, nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(ctx context.Context, runID string) (RunInfo, error) {
	info, err := scanRun(s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM match_runs WHERE id=?`, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return RunInfo{}, fmt.Errorf("%w: run %s", internalerr.ErrNotFound, runID)
	}
	return info, err
}

// ListRuns returns all runs, oldest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM match_runs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		info, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// RunMatches returns the stored matches of a run in report order.
func (s *Store) RunMatches(ctx context.Context, runID string) ([]StoredMatch, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT source, begin_token, end_token, ids, ranks, text
FROM matches WHERE run_id=? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StoredMatch
	for rows.Next() {
		var (
			sm         StoredMatch
			ids, ranks string
		)
		if err := rows.Scan(&sm.Source, &sm.Begin, &sm.End, &ids, &ranks, &sm.Text); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(ids), &sm.IDs); err != nil {
			return nil, fmt.Errorf("decode ids: %w", err)
		}
		if err := json.Unmarshal([]byte(ranks), &sm.Ranks); err != nil {
			return nil, fmt.Errorf("decode ranks: %w", err)
		}
		out = append(out, sm)
	}
	return out, rows.Err()
}
