package common

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Configuration holds the connection settings of one datasource.
type Configuration struct {
	ExtraParams    string `json:"extraParams" mapstructure:"extra_params"`
	MaxIdleConns   uint   `json:"maxIdleConns" mapstructure:"max_idle_conns"`
	MaxPoolSize    uint   `json:"maxPoolSize" mapstructure:"max_pool_size"`
	MaxIdleTime    uint   `json:"maxIdleTime" mapstructure:"max_idle_time"`       // seconds
	ConnectTimeout uint   `json:"connectTimeout" mapstructure:"connect_timeout"` // seconds
	QueryTimeout   uint   `json:"queryTimeout" mapstructure:"query_timeout"`     // seconds
	Host           string `json:"host" mapstructure:"host"`
	DataBase       string `json:"dataBase" mapstructure:"name"` // file path for sqlite
	Username       string `json:"username" mapstructure:"username"`
	Password       string `json:"password" mapstructure:"password"`
	Port           string `json:"port" mapstructure:"port"`
}

func (c Configuration) Value() (driver.Value, error) {
	marshal, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(marshal), nil
}

func (c *Configuration) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("configuration column must be text")
	}
	return json.Unmarshal(raw, c)
}

// DatasourceTable is one row of the datasource metadata table.
type DatasourceTable struct {
	DatasourceId string        `gorm:"primaryKey;column:datasource_id" json:"datasource_id"`
	Name         string        `gorm:"column:name" json:"name"`
	Desc         string        `gorm:"column:desc" json:"desc"`
	Type         string        `gorm:"column:type" json:"type"` // mysql, clickhouse, sqlite
	Config       Configuration `gorm:"column:configuration;type:text" json:"configuration"`
	Status       int           `gorm:"column:status" json:"status"` // 0: ok, 1: failed
	CreateTime   time.Time     `gorm:"column:create_time;autoCreateTime" json:"create_time"`
	UpdateTime   time.Time     `gorm:"column:update_time;autoUpdateTime" json:"update_time"`
	CreateBy     string        `gorm:"column:create_by" json:"create_by"`
}

func (DatasourceTable) TableName() string {
	return "datasource"
}
