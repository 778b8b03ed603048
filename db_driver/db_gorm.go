package db_driver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bingLAN/table_view/common"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// gormDriver holds everything the concrete drivers share. Each concrete
// driver only knows how to build its dialector. mu guards dbConn and the
// recorded status; recovery collapses concurrent reconnects into one.
type gormDriver struct {
	mu             sync.RWMutex
	dbConn         *gorm.DB
	datasourceInfo common.DatasourceTable
	dialector      func(info common.DatasourceTable) gorm.Dialector
	recovery       singleflight.Group
}

func (g *gormDriver) open() (*gorm.DB, error) {
	db, err := gorm.Open(g.dialector(g.datasourceInfo), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	cfg := g.datasourceInfo.Config
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(int(cfg.MaxIdleConns))
	}
	if cfg.MaxPoolSize > 0 {
		sqlDB.SetMaxOpenConns(int(cfg.MaxPoolSize))
	}
	if cfg.MaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.MaxIdleTime) * time.Second)
	}

	return db, nil
}

// connectLocked replaces the pool. Callers hold mu.
func (g *gormDriver) connectLocked() error {
	db, err := g.open()
	if err != nil {
		g.datasourceInfo.Status = ConnFail
		return err
	}
	g.dbConn = db
	g.datasourceInfo.Status = ConnSuccess

	return nil
}

// DBConn opens the pool and records the result in the status.
func (g *gormDriver) DBConn() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.connectLocked()
}

func (g *gormDriver) Conn() *gorm.DB {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.dbConn
}

func (g *gormDriver) GetDBConnStatus() DBConnStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.datasourceInfo.Status
}

// setStatus records status only while conn is still the live pool, so a
// late report about a replaced pool is dropped.
func (g *gormDriver) setStatus(conn *gorm.DB, status DBConnStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.dbConn == conn {
		g.datasourceInfo.Status = status
	}
}

func (g *gormDriver) ping(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}

	timeout := time.Duration(g.datasourceInfo.Config.ConnectTimeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return sqlDB.PingContext(ctx)
}

// CheckDBConnStatus reports ConnSuccess when the pool answers a ping.
func (g *gormDriver) CheckDBConnStatus() DBConnStatus {
	conn := g.Conn()
	if conn == nil {
		if err := g.DBRecovery(); err != nil {
			return ConnFail
		}
		return ConnSuccess
	}

	if err := g.ping(conn); err != nil {
		g.setStatus(conn, ConnFail)
		return ConnFail
	}

	g.setStatus(conn, ConnSuccess)
	return ConnSuccess
}

// queryFailed pings conn after a failed query. When it no longer answers the
// pool is marked failed and err comes back wrapped in ErrConnLost. Errors
// from a healthy pool are returned unchanged.
func (g *gormDriver) queryFailed(conn *gorm.DB, err error) error {
	if errPing := g.ping(conn); errPing != nil {
		g.setStatus(conn, ConnFail)
		return fmt.Errorf("%w: %v", ErrConnLost, err)
	}
	return err
}

// DBRecovery rebuilds a failed or closed pool. A healthy pool is left as is,
// and concurrent callers share one reconnect.
func (g *gormDriver) DBRecovery() error {
	_, err, _ := g.recovery.Do("recovery", func() (interface{}, error) {
		g.mu.Lock()
		defer g.mu.Unlock()

		if g.dbConn != nil && g.datasourceInfo.Status == ConnSuccess {
			return nil, nil
		}
		if g.dbConn != nil {
			if sqlDB, err := g.dbConn.DB(); err == nil {
				_ = sqlDB.Close()
			}
		}
		g.dbConn = nil

		return nil, g.connectLocked()
	})

	return err
}

// Close releases the pool; a later DBRecovery reopens it.
func (g *gormDriver) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.dbConn == nil {
		return nil
	}
	sqlDB, err := g.dbConn.DB()
	g.dbConn = nil
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

func (g *gormDriver) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t := g.datasourceInfo.Config.QueryTimeout; t > 0 {
		return context.WithTimeout(ctx, time.Duration(t)*time.Second)
	}
	return context.WithCancel(ctx)
}

func (g *gormDriver) buildTableSQL(table string, limit int) (string, error) {
	if err := CheckTableName(table); err != nil {
		return "", err
	}
	sql := fmt.Sprintf("SELECT * FROM `%s`", table)
	if limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", limit)
	}
	return sql, nil
}

// GetColumns reads the column list from a one-row probe, like a dataset
// sample before it is registered.
func (g *gormDriver) GetColumns(ctx context.Context, table string) ([]string, error) {
	conn := g.Conn()
	if conn == nil {
		return nil, fmt.Errorf("%w: datasource not connected", ErrConnLost)
	}
	sql, err := g.buildTableSQL(table, 1)
	if err != nil {
		return nil, err
	}

	ctx, cancel := g.queryContext(ctx)
	defer cancel()

	rows, err := conn.WithContext(ctx).Raw(sql).Rows()
	if err != nil {
		return nil, g.queryFailed(conn, err)
	}
	defer rows.Close()

	return rows.Columns()
}

// GetRows runs SELECT * against table and keeps the driver's column order in
// every row.
func (g *gormDriver) GetRows(ctx context.Context, table string, limit int) (common.Dataset, error) {
	conn := g.Conn()
	if conn == nil {
		return nil, fmt.Errorf("%w: datasource not connected", ErrConnLost)
	}
	sql, err := g.buildTableSQL(table, limit)
	if err != nil {
		return nil, err
	}

	ctx, cancel := g.queryContext(ctx)
	defer cancel()

	rows, err := conn.WithContext(ctx).Raw(sql).Rows()
	if err != nil {
		return nil, g.queryFailed(conn, err)
	}
	defer rows.Close()

	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	columns := make([]string, len(colTypes))
	for index, col := range colTypes {
		columns[index] = col.Name()
	}

	dataset := make(common.Dataset, 0)
	values := make([]interface{}, len(columns))
	ptrs := make([]interface{}, len(columns))
	for index := range values {
		ptrs[index] = &values[index]
	}
	for rows.Next() {
		if err = rows.Scan(ptrs...); err != nil {
			return nil, g.queryFailed(conn, err)
		}
		row := common.NewRow()
		for index, column := range columns {
			row.Set(column, cellFromColumn(values[index], colTypes[index].DatabaseTypeName()))
		}
		dataset = append(dataset, row)
	}
	if err = rows.Err(); err != nil {
		return nil, g.queryFailed(conn, err)
	}

	return dataset, nil
}

func isNumericType(baseType string) bool {
	switch strings.ToUpper(baseType) {
	case "TINYINT", "SMALLINT", "MEDIUMINT", "INT", "INTEGER", "BIGINT",
		"UNSIGNED TINYINT", "UNSIGNED SMALLINT", "UNSIGNED MEDIUMINT", "UNSIGNED INT", "UNSIGNED BIGINT",
		"FLOAT", "DOUBLE", "REAL", "DECIMAL", "NUMERIC",
		"INT8", "INT16", "INT32", "INT64", "UINT8", "UINT16", "UINT32", "UINT64", "FLOAT32", "FLOAT64":
		return true
	}
	return false
}

// cellFromColumn keeps numeric columns numeric even when the driver hands
// them back as text, which the mysql text protocol does.
func cellFromColumn(v interface{}, baseType string) common.CellValue {
	var text string
	switch x := v.(type) {
	case []byte:
		text = string(x)
	case string:
		text = x
	default:
		return common.CellFromAny(v)
	}
	if isNumericType(baseType) {
		var n json.Number
		if err := json.Unmarshal([]byte(text), &n); err == nil {
			return common.NumberCell(n)
		}
	}
	return common.StringCell(text)
}
