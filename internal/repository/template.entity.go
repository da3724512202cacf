package repository

import (
	"time"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
)

type TemplateEntity struct {
	ID        int64     `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Title     string    `db:"title"      gorm:"column:title;not null"`
	Content   string    `db:"content"    gorm:"column:content;not null"`
	CreatedBy int64     `db:"created_by" gorm:"column:created_by;not null;index"`
	CreatedAt time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime"`
}

func (TemplateEntity) TableName() string { return "message_templates" }

func toTemplateModel(e *TemplateEntity) *model.MessageTemplate {
	if e == nil {
		return nil
	}
	return &model.MessageTemplate{
		ID:        e.ID,
		Title:     e.Title,
		Content:   e.Content,
		CreatedBy: e.CreatedBy,
		CreatedAt: e.CreatedAt,
	}
}

func toTemplateModels(entities []*TemplateEntity) []*model.MessageTemplate {
	if entities == nil {
		return nil
	}
	models := make([]*model.MessageTemplate, len(entities))
	for i, e := range entities {
		models[i] = toTemplateModel(e)
	}
	return models
}
