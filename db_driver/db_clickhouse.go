package db_driver

import (
	"fmt"

	"github.com/bingLAN/table_view/common"
	"gorm.io/driver/clickhouse"
	"gorm.io/gorm"
)

type ClickhouseDriver struct {
	gormDriver
}

func clickhouseDSN(info common.DatasourceTable) string {
	cfg := info.Config
	dsn := fmt.Sprintf("tcp://%s:%s?database=%s&username=%s&password=%s&dial_timeout=%d&read_timeout=%d",
		cfg.Host, cfg.Port, cfg.DataBase, cfg.Username, cfg.Password, cfg.ConnectTimeout, cfg.QueryTimeout)
	if cfg.ExtraParams != "" {
		dsn = dsn + "&" + cfg.ExtraParams
	}
	return dsn
}

func clickhouseDialector(info common.DatasourceTable) gorm.Dialector {
	return clickhouse.New(clickhouse.Config{DSN: clickhouseDSN(info)})
}

// NewClickhouseDriver connects to a clickhouse datasource.
func NewClickhouseDriver(datasourceInfo common.DatasourceTable) (DBDriver, error) {
	source := &ClickhouseDriver{gormDriver{datasourceInfo: datasourceInfo, dialector: clickhouseDialector}}
	if err := source.DBConn(); err != nil {
		return nil, err
	}

	return source, nil
}
