package repository

import (
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
)

type ContactEntity struct {
	ID     int64  `db:"id"      gorm:"primaryKey;autoIncrement;column:id"`
	UserID int64  `db:"user_id" gorm:"column:user_id;not null;index"`
	Name   string `db:"name"    gorm:"column:name;not null"`
	Phone  string `db:"phone"   gorm:"column:phone;not null"`
}

func (ContactEntity) TableName() string { return "contacts" }

func toContactModel(e *ContactEntity) *model.Contact {
	if e == nil {
		return nil
	}
	return &model.Contact{
		ID:     e.ID,
		UserID: e.UserID,
		Name:   e.Name,
		Phone:  e.Phone,
	}
}

func toContactModels(entities []*ContactEntity) []*model.Contact {
	if entities == nil {
		return nil
	}
	models := make([]*model.Contact, len(entities))
	for i, e := range entities {
		models[i] = toContactModel(e)
	}
	return models
}
