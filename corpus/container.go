package corpus

import (
	"bytes"
	"database/sql"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net/url"
	"strconv"

	"github.com/klauspost/compress/gzip"

	// Blind import support for sqlite3 used by the container.
	_ "github.com/mattn/go-sqlite3"
)

// The container is a SQLite file laid out like a small hierarchical data
// file: named groups carry typed attributes and compressed float64 datasets.
const (
	rootGroup = "/"
	dataGroup = "data"

	dtypeFloat64 = "float64"
	codecGzip    = "gzip"

	createAttrsTableTmpl = `CREATE TABLE IF NOT EXISTS attrs (
		"grp"    TEXT NOT NULL,
		"name"   TEXT NOT NULL,
		"kind"   TEXT NOT NULL,
		"value"  TEXT NOT NULL,
		PRIMARY KEY (grp, name)
	);`
	createDatasetsTableTmpl = `CREATE TABLE IF NOT EXISTS datasets (
		"grp"      TEXT NOT NULL,
		"name"     TEXT NOT NULL,
		"dtype"    TEXT NOT NULL,
		"rows"     INTEGER NOT NULL,
		"cols"     INTEGER NOT NULL,
		"codec"    TEXT NOT NULL,
		"payload"  BLOB NOT NULL,
		PRIMARY KEY (grp, name)
	);`
	insertAttrTmpl = `INSERT OR REPLACE INTO attrs (
		grp,
		name,
		kind,
		value
	) VALUES (?, ?, ?, ?);`
	insertDatasetTmpl = `INSERT OR REPLACE INTO datasets (
		grp,
		name,
		dtype,
		rows,
		cols,
		codec,
		payload
	) VALUES (?, ?, ?, ?, ?, ?, ?);`
	getAttrTmpl    = `SELECT kind, value FROM attrs WHERE grp = ? AND name = ?;`
	getDatasetTmpl = `SELECT dtype, rows, cols, codec, payload FROM datasets WHERE grp = ? AND name = ?;`
)

// container wraps an open container file.
type container struct {
	db *sql.DB
}

// dsn builds a sqlite URI for path. The path is escaped so that characters
// like '#' and '?' stay part of the file name.
func dsn(path, mode string) string {
	return "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=" + mode
}

func createContainer(path string) (*container, error) {
	db, err := sql.Open("sqlite3", dsn(path, "rwc"))
	if err != nil {
		return nil, fmt.Errorf("unable to open container %q: %w", path, err)
	}
	for _, tmpl := range []string{createAttrsTableTmpl, createDatasetsTableTmpl} {
		if _, err := db.Exec(tmpl); err != nil {
			db.Close()
			return nil, fmt.Errorf("unable to create container tables in %q: %w", path, err)
		}
	}
	return &container{db: db}, nil
}

func openContainer(path string) (*container, error) {
	db, err := sql.Open("sqlite3", dsn(path, "ro"))
	if err != nil {
		return nil, fmt.Errorf("unable to open container %q: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to open container %q: %w", path, err)
	}
	return &container{db: db}, nil
}

func (c *container) Close() error {
	return c.db.Close()
}

func setAttr(tx *sql.Tx, group, name string, value any) error {
	var kind, text string
	switch v := value.(type) {
	case int:
		kind, text = "int", strconv.Itoa(v)
	case float64:
		kind, text = "float", strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		kind, text = "string", v
	default:
		return fmt.Errorf("attribute %s/%s: unsupported type %T", group, name, value)
	}
	if _, err := tx.Exec(insertAttrTmpl, group, name, kind, text); err != nil {
		return fmt.Errorf("unable to write attribute %s/%s: %w", group, name, err)
	}
	return nil
}

func putDataset(tx *sql.Tx, group, name string, rows, cols int, values []float64) error {
	if rows*cols != len(values) {
		return fmt.Errorf("dataset %s/%s: shape [%d, %d] does not hold %d values", group, name, rows, cols, len(values))
	}
	payload, err := encodeFloats(values)
	if err != nil {
		return fmt.Errorf("dataset %s/%s: %w", group, name, err)
	}
	if _, err := tx.Exec(insertDatasetTmpl, group, name, dtypeFloat64, rows, cols, codecGzip, payload); err != nil {
		return fmt.Errorf("unable to write dataset %s/%s: %w", group, name, err)
	}
	return nil
}

// attr returns the raw text of an attribute; ok is false when it is absent.
func (c *container) attr(group, name string) (value string, ok bool, err error) {
	var kind string
	err = c.db.QueryRow(getAttrTmpl, group, name).Scan(&kind, &value)
	switch {
	case err == sql.ErrNoRows:
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("unable to read attribute %s/%s: %w", group, name, err)
	}
	return value, true, nil
}

func (c *container) attrInt(group, name string) (int, bool, error) {
	v, ok, err := c.attr(group, name)
	if err != nil || !ok {
		return 0, ok, err
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false, fmt.Errorf("attribute %s/%s: %w", group, name, err)
	}
	return i, true, nil
}

func (c *container) attrFloat(group, name string) (float64, bool, error) {
	v, ok, err := c.attr(group, name)
	if err != nil || !ok {
		return 0, ok, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, fmt.Errorf("attribute %s/%s: %w", group, name, err)
	}
	return f, true, nil
}

// dataset returns the shape and values of a dataset.
func (c *container) dataset(group, name string) (rows, cols int, values []float64, err error) {
	var dtype, codec string
	var payload []byte
	if err := c.db.QueryRow(getDatasetTmpl, group, name).Scan(&dtype, &rows, &cols, &codec, &payload); err != nil {
		return 0, 0, nil, fmt.Errorf("unable to read dataset %s/%s: %w", group, name, err)
	}
	if dtype != dtypeFloat64 || codec != codecGzip {
		return 0, 0, nil, fmt.Errorf("dataset %s/%s: unsupported dtype %q / codec %q", group, name, dtype, codec)
	}
	values, err = decodeFloats(payload, rows*cols)
	if err != nil {
		return 0, 0, nil, fmt.Errorf("dataset %s/%s: %w", group, name, err)
	}
	return rows, cols, values, nil
}

func encodeFloats(values []float64) ([]byte, error) {
	raw := make([]byte, 8*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint64(raw[8*i:], math.Float64bits(v))
	}
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(raw); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeFloats(payload []byte, n int) ([]float64, error) {
	r, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(raw) != 8*n {
		return nil, fmt.Errorf("payload holds %d bytes, want %d", len(raw), 8*n)
	}
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[8*i:]))
	}
	return values, nil
}
