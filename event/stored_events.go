package event

import (
	"taskflow/persistence"

	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

var (
	EventPersistCreateFunc = eventPersistCreate
	LoadEventsFunc         = LoadEvents
)

func eventPersistCreate(record *EventRecord, db *gorm.DB) error {
	return db.Create(record).Error
}

// LoadEvents pages through stored events, oldest first.
func LoadEvents(page, size int) ([]EventRecord, error) {
	records := []EventRecord{}
	db := persistence.ActiveDataSourceManager.GormDB(nil)
	offset := (page - 1) * size
	if offset < 0 {
		offset = 0
	}
	if err := db.Order("ID ASC").Offset(offset).Limit(size).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// RecentEvents lists the newest events of the given projects.
func RecentEvents(db *gorm.DB, projectIds []types.ID, limit int) ([]EventRecord, error) {
	records := []EventRecord{}
	if len(projectIds) == 0 {
		return records, nil
	}
	if err := db.Where("project_id IN (?)", projectIds).
		Order("timestamp DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}
