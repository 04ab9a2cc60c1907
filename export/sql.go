package export

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang/glog"
)

const (
	sqlRecordCountInfo = 100

	sqlCreateTableTmpl = `CREATE TABLE IF NOT EXISTS statistics (
		"ID"           INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"Identifier"   TEXT NOT NULL,
		"Source"       TEXT NOT NULL,
		"Channel"      INTEGER,
		"Band"         TEXT,
		"SampleCount"  INTEGER,
		"NegCounts"    INTEGER,
		"PosCounts"    INTEGER,
		"NegPosRatio"  REAL,
		"Low"          INTEGER,
		"High"         INTEGER,
		"LowHighRatio" REAL,
		"Time"         INTEGER
	);`
	sqlInsertRecordTmpl = `INSERT INTO statistics (
		Identifier,
		Source,
		Channel,
		Band,
		SampleCount,
		NegCounts,
		PosCounts,
		NegPosRatio,
		Low,
		High,
		LowHighRatio,
		Time
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`
)

// SQL stores records in an SQLite database.
type SQL struct {
	DB *sql.DB
}

func (s *SQL) Write(ctx context.Context, records <-chan Record) error {
	return writeRecords(ctx, s.DB, "sqlite", sqlCreateTableTmpl, sqlInsertRecordTmpl, records)
}

// writeRecords creates the table and inserts every record, logging and
// skipping the ones that fail.
func writeRecords(ctx context.Context, db *sql.DB, kind, createTmpl, insertTmpl string, records <-chan Record) error {
	if _, err := db.ExecContext(ctx, createTmpl); err != nil {
		return fmt.Errorf("unable to create table: %w", err)
	}
	statement, err := db.PrepareContext(ctx, insertTmpl)
	if err != nil {
		return err
	}
	defer statement.Close()

	counts := map[string]int{
		"error":   0,
		"success": 0,
		"total":   0,
	}
	for r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		counts["total"] += 1
		if _, err := statement.ExecContext(ctx, r.Identifier, r.Source, r.Channel, r.Band, r.SampleCount, r.NegCounts, r.PosCounts, r.NegPosRatio, r.Low, r.High, r.LowHighRatio, r.Time.UnixMilli()); err != nil {
			counts["error"] += 1
			glog.Warningf("error storing in %s DB: %s\n", kind, err)
			continue
		}
		counts["success"] += 1
		if counts["total"]%sqlRecordCountInfo == 0 {
			glog.Infof("Record export counts: %+v\n", counts)
		}
	}
	glog.Infof("Record export counts: %+v\n", counts)

	return nil
}
