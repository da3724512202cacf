package repository

import (
	"context"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/pg"
)

type ContactRepository struct {
	*pg.DB
}

func NewContactRepository(db *pg.DB) *ContactRepository {
	return &ContactRepository{
		db,
	}
}

// ListByIDs returns the requested contacts that belong to ownerID.
// Ids owned by someone else are filtered out, not reported.
func (r *ContactRepository) ListByIDs(ctx context.Context, ownerID int64, ids []int64) ([]*model.Contact, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var entities []*ContactEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("user_id = ? AND id IN ?", ownerID, ids).
		Order("id ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toContactModels(entities), nil
}

func (r *ContactRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*model.Contact, error) {
	var entities []*ContactEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("name ASC").
		Find(&entities).
		Error
	if err != nil {
		return nil, err
	}
	return toContactModels(entities), nil
}
