package db_driver

import (
	"github.com/bingLAN/table_view/common"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SqliteDriver serves a local database file; Config.DataBase is the path.
type SqliteDriver struct {
	gormDriver
}

func sqliteDialector(info common.DatasourceTable) gorm.Dialector {
	dsn := info.Config.DataBase
	if info.Config.ExtraParams != "" {
		dsn += "?" + info.Config.ExtraParams
	}
	return sqlite.Open(dsn)
}

// NewSqliteDriver opens a sqlite file datasource.
func NewSqliteDriver(datasourceInfo common.DatasourceTable) (DBDriver, error) {
	source := &SqliteDriver{gormDriver{datasourceInfo: datasourceInfo, dialector: sqliteDialector}}
	if err := source.DBConn(); err != nil {
		return nil, err
	}

	return source, nil
}
