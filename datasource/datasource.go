package datasource

import (
	"fmt"

	"github.com/bingLAN/table_view/common"
	"github.com/bingLAN/table_view/db_driver"
	cmap "github.com/orcaman/concurrent-map"
	"gorm.io/gorm"
)

// Datasource is a registered database with its live driver.
type Datasource struct {
	datasourceType string
	tableInfo      common.DatasourceTable
	DBDriver       db_driver.DBDriver
}

func (s *Datasource) Info() common.DatasourceTable {
	return s.tableInfo
}

func (s *Datasource) Type() string {
	return s.datasourceType
}

// CheckDatasource pings the source and writes a changed status back when db
// is not nil.
func (s *Datasource) CheckDatasource(db *gorm.DB) (db_driver.DBConnStatus, error) {
	var err error

	oldStatus := s.tableInfo.Status
	nowStatus := s.DBDriver.CheckDBConnStatus()

	if oldStatus != nowStatus {
		s.tableInfo.Status = nowStatus
		if db != nil {
			err = db.Model(&common.DatasourceTable{}).Where("datasource_id = ?", s.tableInfo.DatasourceId).Update("status", nowStatus).Error
		}
	}

	return nowStatus, err
}

// Datasources caches live datasources by id.
type Datasources struct {
	dbDriverMap cmap.ConcurrentMap // id---*Datasource
}

func createDatasourceId() string {
	return common.GetUUID()
}

// GetDatasourceAll lists the persisted datasources.
func (ds *Datasources) GetDatasourceAll(db *gorm.DB) ([]common.DatasourceTable, error) {
	var sourceList []common.DatasourceTable

	err := db.Model(&common.DatasourceTable{}).Find(&sourceList).Error
	if err != nil {
		return nil, err
	}

	return sourceList, nil
}

// GetDatasourceCached lists what is live in this process.
func (ds *Datasources) GetDatasourceCached() []common.DatasourceTable {
	var sourceList []common.DatasourceTable
	for _, v := range ds.dbDriverMap.Items() {
		sourceList = append(sourceList, v.(*Datasource).tableInfo)
	}
	return sourceList
}

// GetDatasourceFromCache returns a live datasource by id.
func (ds *Datasources) GetDatasourceFromCache(datasourceId string) (*Datasource, error) {
	source, ok := ds.dbDriverMap.Get(datasourceId)
	if !ok {
		return nil, fmt.Errorf("dbDriverMap not have this source[%s]", datasourceId)
	}

	return source.(*Datasource), nil
}

// DelDatasourceById closes the pool and forgets the datasource.
func (ds *Datasources) DelDatasourceById(sourceId string, db *gorm.DB) error {
	datasource, ok := ds.dbDriverMap.Get(sourceId)
	if !ok {
		return fmt.Errorf("dbDriverMap not have this source[%s]", sourceId)
	}

	source := datasource.(*Datasource)
	_ = source.DBDriver.Close()

	ds.dbDriverMap.Remove(sourceId)

	if db == nil {
		return nil
	}
	return db.Where("datasource_id = ?", sourceId).Delete(&common.DatasourceTable{}).Error
}

// ModifyDatasource drops the live driver and builds a new one from dt.
func (ds *Datasources) ModifyDatasource(dt common.DatasourceTable, db *gorm.DB) error {
	datasource, ok := ds.dbDriverMap.Get(dt.DatasourceId)
	if !ok {
		return fmt.Errorf("dbDriverMap not have this source[%s]", dt.DatasourceId)
	}

	source := datasource.(*Datasource)
	_ = source.DBDriver.Close()
	ds.dbDriverMap.Remove(dt.DatasourceId)

	if err := ds.createDatasourceStruct(&dt, db); err != nil {
		return err
	}

	if db == nil {
		return nil
	}
	return db.Model(&common.DatasourceTable{}).Where("datasource_id = ?", dt.DatasourceId).Updates(dt).Error
}

// createDatasourceStruct connects dt and caches it. A nil db skips the status
// write back.
func (ds *Datasources) createDatasourceStruct(dt *common.DatasourceTable, db *gorm.DB) error {
	if dt.DatasourceId == "" {
		dt.DatasourceId = createDatasourceId()
	}

	dbDriver, err := db_driver.NewDriver(*dt)
	if err != nil {
		dt.Status = db_driver.ConnFail
		return err
	}

	if dt.Status != db_driver.ConnSuccess {
		dt.Status = db_driver.ConnSuccess
		if db != nil {
			db.Model(&common.DatasourceTable{}).Where("datasource_id = ?", dt.DatasourceId).Update("status", dt.Status)
		}
	}

	ds.dbDriverMap.Set(dt.DatasourceId, &Datasource{
		datasourceType: dt.Type,
		tableInfo:      *dt,
		DBDriver:       dbDriver,
	})

	return nil
}

// CreateDatasource connects dt, caches it and persists it when db is not nil.
func (ds *Datasources) CreateDatasource(dt *common.DatasourceTable, db *gorm.DB) error {
	if err := ds.createDatasourceStruct(dt, db); err != nil {
		return err
	}

	if db == nil {
		return nil
	}
	return db.Model(dt).Create(dt).Error
}

// TryCreateDatasource checks that dt can connect without keeping it.
func (ds *Datasources) TryCreateDatasource(dt common.DatasourceTable) db_driver.DBConnStatus {
	dbDriver, err := db_driver.NewDriver(dt)
	if err != nil {
		return db_driver.ConnFail
	}
	_ = dbDriver.Close()

	return db_driver.ConnSuccess
}

// Close releases every pool.
func (ds *Datasources) Close() {
	for _, v := range ds.dbDriverMap.Items() {
		source := v.(*Datasource)
		_ = source.DBDriver.Close()
	}
}

// NewDatasource loads every persisted datasource; db may be nil for a purely
// in-memory registry.
func NewDatasource(db *gorm.DB) (*Datasources, error) {
	s := &Datasources{dbDriverMap: cmap.New()}
	if db == nil {
		return s, nil
	}

	sourceList, err := s.GetDatasourceAll(db)
	if err != nil {
		return nil, err
	}

	for index := range sourceList {
		node := &sourceList[index]
		if err = s.createDatasourceStruct(node, db); err != nil {
			return nil, err
		}
	}

	return s, nil
}
