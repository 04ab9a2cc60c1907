package export

import (
	"context"
	"database/sql"
)

const (
	mysqlCreateTableTmpl = "CREATE TABLE IF NOT EXISTS statistics (" +
		"`ID`           BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY," +
		"`Identifier`   VARCHAR(255) NOT NULL," +
		"`Source`       VARCHAR(1024) NOT NULL," +
		"`Channel`      INT," +
		"`Band`         VARCHAR(64)," +
		"`SampleCount`  BIGINT," +
		"`NegCounts`    BIGINT," +
		"`PosCounts`    BIGINT," +
		"`NegPosRatio`  DOUBLE," +
		"`Low`          BIGINT," +
		"`High`         BIGINT," +
		"`LowHighRatio` DOUBLE," +
		"`Time`         BIGINT" +
		");"
	mysqlInsertRecordTmpl = "INSERT INTO statistics(" +
		"`Identifier`, `Source`, `Channel`, `Band`, `SampleCount`, `NegCounts`, `PosCounts`," +
		"`NegPosRatio`, `Low`, `High`, `LowHighRatio`, `Time`" +
		") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);"
)

// MySQL stores records in a MySQL database.
type MySQL struct {
	DB *sql.DB
}

func (m *MySQL) Write(ctx context.Context, records <-chan Record) error {
	return writeRecords(ctx, m.DB, "mysql", mysqlCreateTableTmpl, mysqlInsertRecordTmpl, records)
}
