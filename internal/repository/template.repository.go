package repository

import (
	"context"
	"errors"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/pg"
	"gorm.io/gorm"
)

var ErrTemplateNotFound = errors.New("template not found")

type TemplateRepository struct {
	*pg.DB
}

func NewTemplateRepository(db *pg.DB) *TemplateRepository {
	return &TemplateRepository{
		db,
	}
}

func (r *TemplateRepository) Get(ctx context.Context, id int64) (*model.MessageTemplate, error) {
	var entity TemplateEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return toTemplateModel(&entity), nil
}

// ListForOwner returns templates the owner created plus the ones shared
// by admin accounts.
func (r *TemplateRepository) ListForOwner(ctx context.Context, ownerID int64) ([]*model.MessageTemplate, error) {
	var entities []*TemplateEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("created_by = ? OR created_by IN (?)",
			ownerID,
			r.Read(ctx).Model(&AccountEntity{}).Select("id").Where("user_type = ?", "admin"),
		).
		Order("title ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toTemplateModels(entities), nil
}
