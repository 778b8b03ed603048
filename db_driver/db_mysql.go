package db_driver

import (
	"fmt"

	"github.com/bingLAN/table_view/common"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type MysqlDriver struct {
	gormDriver
}

func mysqlDSN(info common.DatasourceTable) string {
	cfg := info.Config
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.DataBase)
	if cfg.ConnectTimeout > 0 {
		dsn += fmt.Sprintf("&timeout=%ds", cfg.ConnectTimeout)
	}
	if cfg.ExtraParams != "" {
		dsn = dsn + "&" + cfg.ExtraParams
	}
	return dsn
}

func mysqlDialector(info common.DatasourceTable) gorm.Dialector {
	return mysql.New(mysql.Config{
		DSN:                       mysqlDSN(info),
		DefaultStringSize:         191,
		SkipInitializeWithVersion: false,
	})
}

// NewMysqlDriver connects to a mysql datasource.
func NewMysqlDriver(datasourceInfo common.DatasourceTable) (DBDriver, error) {
	source := &MysqlDriver{gormDriver{datasourceInfo: datasourceInfo, dialector: mysqlDialector}}
	if err := source.DBConn(); err != nil {
		return nil, err
	}

	return source, nil
}
