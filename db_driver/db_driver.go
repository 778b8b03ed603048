package db_driver

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/bingLAN/table_view/common"
	"gorm.io/gorm"
)

// ErrConnLost marks a query that failed because the pool stopped answering.
var ErrConnLost = errors.New("datasource connection lost")

// DBConnStatus is the last known state of a pool.
type DBConnStatus = int

const (
	Unknown     DBConnStatus = iota - 1
	ConnSuccess              // 0
	ConnFail                 // 1
)

// String2DBConnStatus parses a status name; unknown names give Unknown.
func String2DBConnStatus(s string) DBConnStatus {
	switch s {
	case "Success":
		return ConnSuccess
	case "Fail":
		return ConnFail
	}

	return Unknown
}

func DBConnStatus2String(s DBConnStatus) string {
	switch s {
	case ConnSuccess:
		return "Success"
	case ConnFail:
		return "Fail"
	}

	return "Unknown"
}

const (
	DatasourceCH     string = "clickhouse"
	DatasourceMYSQL  string = "mysql"
	DatasourceSQLITE string = "sqlite"
)

// DBDriverHandle builds a driver for one datasource type.
type DBDriverHandle struct {
	CreateFunc func(datasourceInfo common.DatasourceTable) (DBDriver, error)
}

// DBDriverMap registers a constructor per datasource type.
var DBDriverMap = map[string]DBDriverHandle{
	DatasourceCH:     {CreateFunc: NewClickhouseDriver},
	DatasourceMYSQL:  {CreateFunc: NewMysqlDriver},
	DatasourceSQLITE: {CreateFunc: NewSqliteDriver},
}

// NewDriver picks the driver constructor registered for dt.Type.
func NewDriver(dt common.DatasourceTable) (DBDriver, error) {
	handle, ok := DBDriverMap[dt.Type]
	if !ok {
		return nil, fmt.Errorf("datasource type [%s] not support", dt.Type)
	}
	return handle.CreateFunc(dt)
}

// DBDriver is a connection pool to one datasource.
type DBDriver interface {
	DBRecovery() error                                                             // rebuild a failed pool
	Close() error                                                                  // release the pool
	GetDBConnStatus() DBConnStatus                                                 // last recorded status
	CheckDBConnStatus() DBConnStatus                                               // ping now
	Conn() *gorm.DB                                                                // raw handle, nil when closed
	GetColumns(ctx context.Context, table string) ([]string, error)                // column names in table order
	GetRows(ctx context.Context, table string, limit int) (common.Dataset, error) // limit <= 0 means all rows
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// CheckTableName rejects anything that is not a bare identifier; table names
// end up inside sql text.
func CheckTableName(table string) error {
	if !tableNameRe.MatchString(table) {
		return fmt.Errorf("invalid table name [%s]", table)
	}
	return nil
}
