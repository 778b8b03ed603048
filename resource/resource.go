package resource

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/bingLAN/table_view/common"
	"github.com/bingLAN/table_view/datasource"
	"github.com/bingLAN/table_view/db_driver"
	cmap "github.com/orcaman/concurrent-map"
	"gorm.io/gorm"
)

// ErrResourceNotFound is returned for names that are not registered.
var ErrResourceNotFound = errors.New("resource not found")

// Resource is one table exposed under a name, bound to the datasource that
// holds it.
type Resource struct {
	Info       *common.ResourceTable
	Datasource *datasource.Datasource
}

// Name is the key the api serves the table under.
func (r *Resource) Name() string {
	return r.Info.ResourceName
}

// Public resources are readable by any logged in user.
func (r *Resource) Public() bool {
	return r.Info.Public
}

// GetRows reads the whole table. A datasource that is marked failed gets one
// recovery attempt first; a query that fails because the pool went away is
// retried once on a fresh pool.
func (r *Resource) GetRows(ctx context.Context, db *gorm.DB) (common.Dataset, error) {
	driver := r.Datasource.DBDriver
	if driver.GetDBConnStatus() != db_driver.ConnSuccess {
		if err := r.recover(db); err != nil {
			return nil, err
		}
	}

	rows, err := driver.GetRows(ctx, r.Info.Info, 0)
	if !errors.Is(err, db_driver.ErrConnLost) {
		return rows, err
	}

	if errRec := r.recover(db); errRec != nil {
		return nil, err
	}
	return driver.GetRows(ctx, r.Info.Info, 0)
}

// recover reconnects the datasource. Concurrent callers share one reconnect
// and a pool another caller already rebuilt is kept.
func (r *Resource) recover(db *gorm.DB) error {
	if err := r.Datasource.DBDriver.DBRecovery(); err != nil {
		return fmt.Errorf("datasource [%s] not available: %w", r.Info.DatasourceId, err)
	}
	if db != nil {
		return db.Model(&common.DatasourceTable{}).Where("datasource_id = ?", r.Info.DatasourceId).Update("status", db_driver.ConnSuccess).Error
	}
	return nil
}

func resourceKey(name string) string {
	return strings.ToLower(name)
}

// Resources caches every exposed table by lower-cased name.
type Resources struct {
	sources     *datasource.Datasources
	resourceMap cmap.ConcurrentMap // lower(name)---*Resource
}

// GetResourceByName looks name up case-insensitively.
func (d *Resources) GetResourceByName(name string) (*Resource, error) {
	s, ok := d.resourceMap.Get(resourceKey(name))
	if !ok {
		return nil, fmt.Errorf("resourceMap doesn't have [%s] resource: %w", name, ErrResourceNotFound)
	}

	return s.(*Resource), nil
}

// List returns the cached resources sorted by name.
func (d *Resources) List() []common.ResourceTable {
	keys := d.resourceMap.Keys()
	sort.Strings(keys)

	list := make([]common.ResourceTable, 0, len(keys))
	for _, k := range keys {
		if v, ok := d.resourceMap.Get(k); ok {
			list = append(list, *v.(*Resource).Info)
		}
	}
	return list
}

// GetAllResourceFromDB lists the persisted resources.
func (d *Resources) GetAllResourceFromDB(db *gorm.DB) ([]common.ResourceTable, error) {
	var resources []common.ResourceTable

	err := db.Model(&common.ResourceTable{}).Find(&resources).Error
	if err != nil {
		return nil, err
	}

	return resources, nil
}

func (d *Resources) createResource(rt *common.ResourceTable) (*Resource, error) {
	if rt.ResourceName == "" {
		return nil, errors.New("resource name is empty")
	}
	if rt.Info == "" {
		rt.Info = rt.ResourceName
	}
	if err := db_driver.CheckTableName(rt.Info); err != nil {
		return nil, err
	}

	source, err := d.sources.GetDatasourceFromCache(rt.DatasourceId)
	if err != nil {
		return nil, err
	}

	return &Resource{Info: rt, Datasource: source}, nil
}

// ResourceAdd registers rt, persisting it when db is not nil.
func (d *Resources) ResourceAdd(rt *common.ResourceTable, db *gorm.DB) error {
	if _, ok := d.resourceMap.Get(resourceKey(rt.ResourceName)); ok {
		return fmt.Errorf("resource [%s] exist", rt.ResourceName)
	}

	res, err := d.createResource(rt)
	if err != nil {
		return err
	}

	if db != nil {
		if err = db.Model(&common.ResourceTable{}).Create(res.Info).Error; err != nil {
			return err
		}
	}

	d.resourceMap.Set(resourceKey(rt.ResourceName), res)

	return nil
}

// ResourceDel unregisters name and removes its row when db is not nil.
func (d *Resources) ResourceDel(name string, db *gorm.DB) error {
	res, err := d.GetResourceByName(name)
	if err != nil {
		return err
	}

	if db != nil {
		err = db.Where("resource_name = ?", res.Info.ResourceName).Delete(&common.ResourceTable{}).Error
		if err != nil {
			return err
		}
	}

	d.resourceMap.Remove(resourceKey(name))

	return nil
}

// ResourceDelBySourceID drops every resource served by one datasource.
func (d *Resources) ResourceDelBySourceID(datasourceId string, db *gorm.DB) error {
	for _, v := range d.resourceMap.Items() {
		res := v.(*Resource)
		if res.Info.DatasourceId == datasourceId {
			if err := d.ResourceDel(res.Info.ResourceName, db); err != nil {
				return err
			}
		}
	}

	return nil
}

// ResourceModify rebinds a resource; the name is the key and cannot change.
func (d *Resources) ResourceModify(rt common.ResourceTable, db *gorm.DB) error {
	old, err := d.GetResourceByName(rt.ResourceName)
	if err != nil {
		return err
	}
	rt.ResourceName = old.Info.ResourceName
	rt.CreateTime = old.Info.CreateTime

	res, err := d.createResource(&rt)
	if err != nil {
		return err
	}

	if db != nil {
		if err = db.Save(res.Info).Error; err != nil {
			return err
		}
	}

	d.resourceMap.Set(resourceKey(rt.ResourceName), res)

	return nil
}

func (d *Resources) resourceCacheInit(db *gorm.DB) error {
	resources, err := d.GetAllResourceFromDB(db)
	if err != nil {
		return err
	}

	for index := range resources {
		res, err := d.createResource(&resources[index])
		if err != nil {
			return err
		}
		d.resourceMap.Set(resourceKey(res.Info.ResourceName), res)
	}

	return nil
}

// NewResources loads the persisted resources; db may be nil for an in-memory registry.
func NewResources(db *gorm.DB, sources *datasource.Datasources) (*Resources, error) {
	rs := &Resources{resourceMap: cmap.New(), sources: sources}
	if db == nil {
		return rs, nil
	}

	if err := rs.resourceCacheInit(db); err != nil {
		return nil, err
	}

	return rs, nil
}
