package table_view

import (
	"context"
	"fmt"

	"github.com/bingLAN/table_view/common"
	"github.com/bingLAN/table_view/datasource"
	"github.com/bingLAN/table_view/db_driver"
	"github.com/bingLAN/table_view/resource"
	"gorm.io/gorm"
)

// TableDriver exposes database tables as named resources. The metadata db
// passed at creation persists datasources and resources; nil keeps them in
// memory only.
type TableDriver struct {
	db          *gorm.DB
	datasources *datasource.Datasources
	resources   *resource.Resources
}

// GetRows reads every row of the named resource in column order.
func (d *TableDriver) GetRows(ctx context.Context, name string) (common.Dataset, error) {
	res, err := d.resources.GetResourceByName(name)
	if err != nil {
		return nil, err
	}

	return res.GetRows(ctx, d.db)
}

// GetResource looks a resource up by name, ignoring case.
func (d *TableDriver) GetResource(name string) (*resource.Resource, error) {
	return d.resources.GetResourceByName(name)
}

// QueryRowsByTable samples a table before it is registered as a resource.
func (d *TableDriver) QueryRowsByTable(ctx context.Context, datasourceId, table string, limit int) (common.Dataset, error) {
	source, err := d.datasources.GetDatasourceFromCache(datasourceId)
	if err != nil {
		return nil, fmt.Errorf("datasourceId [%s] not exist", datasourceId)
	}

	return source.DBDriver.GetRows(ctx, table, limit)
}

// GetColumns previews the columns of a table before it is exposed.
func (d *TableDriver) GetColumns(ctx context.Context, datasourceId, table string) ([]string, error) {
	source, err := d.datasources.GetDatasourceFromCache(datasourceId)
	if err != nil {
		return nil, fmt.Errorf("datasourceId [%s] not exist", datasourceId)
	}

	return source.DBDriver.GetColumns(ctx, table)
}

// AddDatasource connects dt and registers it under a fresh id.
func (d *TableDriver) AddDatasource(dt *common.DatasourceTable) error {
	if dt.DatasourceId != "" {
		// ids are always generated
		return fmt.Errorf("datasourceId [%s] exist", dt.DatasourceId)
	}

	return d.datasources.CreateDatasource(dt, d.db)
}

// DelDatasource removes the datasource and every resource it serves.
func (d *TableDriver) DelDatasource(datasourceId string) error {
	if err := d.resources.ResourceDelBySourceID(datasourceId, d.db); err != nil {
		return err
	}

	return d.datasources.DelDatasourceById(datasourceId, d.db)
}

// ModifyDatasource reconnects the datasource; resources bound to it follow.
func (d *TableDriver) ModifyDatasource(dt common.DatasourceTable) error {
	if err := d.datasources.ModifyDatasource(dt, d.db); err != nil {
		return err
	}

	for _, rt := range d.resources.List() {
		if rt.DatasourceId != dt.DatasourceId {
			continue
		}
		if err := d.resources.ResourceModify(rt, d.db); err != nil {
			return err
		}
	}
	return nil
}

// ScanDatasource lists the live datasources.
func (d *TableDriver) ScanDatasource() []common.DatasourceTable {
	return d.datasources.GetDatasourceCached()
}

// GetDatasource returns a live datasource by id.
func (d *TableDriver) GetDatasource(datasourceId string) (*datasource.Datasource, error) {
	return d.datasources.GetDatasourceFromCache(datasourceId)
}

// CheckDatasource pings a registered datasource, or tries a one-off
// connection for one that is not registered yet.
func (d *TableDriver) CheckDatasource(dt common.DatasourceTable) (db_driver.DBConnStatus, error) {
	source, err := d.datasources.GetDatasourceFromCache(dt.DatasourceId)
	if err != nil {
		return d.datasources.TryCreateDatasource(dt), nil
	}

	return source.CheckDatasource(d.db)
}

// ScanResources lists the registered resources sorted by name.
func (d *TableDriver) ScanResources() []common.ResourceTable {
	return d.resources.List()
}

// AddResource exposes a table under rt.ResourceName.
func (d *TableDriver) AddResource(rt *common.ResourceTable) error {
	return d.resources.ResourceAdd(rt, d.db)
}

// DelResource stops exposing a table.
func (d *TableDriver) DelResource(name string) error {
	return d.resources.ResourceDel(name, d.db)
}

// ModifyResource rebinds an existing resource.
func (d *TableDriver) ModifyResource(rt common.ResourceTable) error {
	return d.resources.ResourceModify(rt, d.db)
}

// Close releases every datasource pool.
func (d *TableDriver) Close() {
	d.datasources.Close()
}

// Migrate creates the metadata tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&common.DatasourceTable{}, &common.ResourceTable{})
}

// CreateTableDriver loads the persisted datasources and resources from db.
func CreateTableDriver(db *gorm.DB) (*TableDriver, error) {
	datasources, err := datasource.NewDatasource(db)
	if err != nil {
		return nil, err
	}

	resources, err := resource.NewResources(db, datasources)
	if err != nil {
		datasources.Close()
		return nil, err
	}

	return &TableDriver{db: db, datasources: datasources, resources: resources}, nil
}
