package common

import "time"

// ResourceTable registers one database table under a public resource name.
type ResourceTable struct {
	ResourceName string    `gorm:"primaryKey;column:resource_name" json:"resource_name"`
	DatasourceId string    `gorm:"column:datasource_id" json:"datasource_id"`
	Info         string    `gorm:"column:info" json:"info"`     // table name in the datasource
	Public       bool      `gorm:"column:public" json:"public"` // readable without a session
	CreateBy     string    `gorm:"column:create_by" json:"create_by"`
	CreateTime   time.Time `gorm:"column:create_time;autoCreateTime" json:"create_time"`
	UpdateTime   time.Time `gorm:"column:update_time;autoUpdateTime" json:"update_time"`
}

func (ResourceTable) TableName() string {
	return "resource_table"
}
