package export

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/pivotmatrix/pkg/header"
	"github.com/vanderheijden86/pivotmatrix/pkg/model"
	"github.com/vanderheijden86/pivotmatrix/pkg/version"
)

// IndexFile is the SQLite index written by WriteIndex next to the tiles.
const IndexFile = "matrix.sqlite3"

// IndexSchemaVersion is stored in export_meta.
const IndexSchemaVersion = 1

var indexSchema = []string{
	`CREATE TABLE headers (
		axis TEXT NOT NULL,
		position INTEGER NOT NULL,
		key TEXT NOT NULL,
		title TEXT NOT NULL,
		parent_keys TEXT,
		depth INTEGER NOT NULL,
		children_count INTEGER NOT NULL,
		collapsed INTEGER NOT NULL DEFAULT 0,
		placeholder INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (axis, key)
	)`,
	`CREATE TABLE cells (
		col_position INTEGER NOT NULL,
		row_position INTEGER NOT NULL,
		row_key TEXT NOT NULL,
		col_key TEXT NOT NULL,
		kind TEXT NOT NULL,
		value TEXT,
		checked INTEGER NOT NULL DEFAULT 0,
		disabled INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (row_key, col_key)
	)`,
	`CREATE TABLE tiles (
		idx INTEGER PRIMARY KEY,
		file TEXT NOT NULL,
		x INTEGER NOT NULL,
		y INTEGER NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		blank INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE export_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	`CREATE INDEX idx_cells_col ON cells(col_key)`,
	`CREATE INDEX idx_headers_position ON headers(axis, position)`,
}

// WriteIndex writes a queryable SQLite index of one export: the visible
// headers in display order, every visible cell with its content and the tile
// rectangles of m. An existing database at path is replaced.
func WriteIndex(ctx context.Context, path string, axes header.Axes, doc model.Document, m *Manifest) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing index: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open index: %w", err)
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range indexSchema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	if err := insertHeaders(ctx, tx, model.AxisRow, axes.Rows); err != nil {
		return fmt.Errorf("insert row headers: %w", err)
	}
	if err := insertHeaders(ctx, tx, model.AxisCol, axes.Cols); err != nil {
		return fmt.Errorf("insert column headers: %w", err)
	}
	if err := insertCells(ctx, tx, axes, doc); err != nil {
		return fmt.Errorf("insert cells: %w", err)
	}
	if err := insertTiles(ctx, tx, m); err != nil {
		return fmt.Errorf("insert tiles: %w", err)
	}

	meta := map[string]string{
		"schema_version": fmt.Sprint(IndexSchemaVersion),
		"generator":      "pmx " + version.Version,
		"generated_at":   time.Now().UTC().Format(time.RFC3339),
		"width":          fmt.Sprint(m.Width),
		"height":         fmt.Sprint(m.Height),
	}
	for k, v := range meta {
		if _, err := tx.ExecContext(ctx, `INSERT INTO export_meta (key, value) VALUES (?, ?)`, k, v); err != nil {
			return fmt.Errorf("insert meta: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	// VACUUM cannot run inside the transaction.
	if _, err := db.ExecContext(ctx, `VACUUM`); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return db.Close()
}

func insertHeaders(ctx context.Context, tx *sql.Tx, axis model.Axis, f header.Flattened) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO headers (axis, position, key, title, parent_keys, depth, children_count, collapsed, placeholder)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, node := range f.Order {
		meta, _ := f.Lookup(node.Key)
		if _, err := stmt.ExecContext(ctx, string(axis), i, node.Key, meta.Title, nullString(meta.ParentKeys),
			meta.Depth(), meta.ChildrenCount, meta.IsCollapsed, f.Placeholder); err != nil {
			return err
		}
	}
	return nil
}

func insertCells(ctx context.Context, tx *sql.Tx, axes header.Axes, doc model.Document) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO cells (col_position, row_position, row_key, col_key, kind, value, checked, disabled)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	values := doc.CellIndex()
	rows := axes.Rows.Len()
	for i, c := range axes.Cells() {
		if c.IsEmpty() {
			continue
		}
		v := values[model.CellKey{Row: c.RowKey, Col: c.ColKey}]
		kind := v.Kind
		if kind == "" {
			kind = model.CellEmpty
		}
		if _, err := stmt.ExecContext(ctx, i/rows, i%rows, c.RowKey, c.ColKey, string(kind),
			nullString(v.Value), v.Checked, v.Disabled); err != nil {
			return err
		}
	}
	return nil
}

func insertTiles(ctx context.Context, tx *sql.Tx, m *Manifest) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tiles (idx, file, x, y, width, height, blank) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, t := range m.Tiles {
		if _, err := stmt.ExecContext(ctx, i, t.File, t.X, t.Y, t.Width, t.Height, t.Blank); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
