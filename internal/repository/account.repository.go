package repository

import (
	"context"
	"errors"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/pg"
	"gorm.io/gorm"
)

var ErrAccountNotFound = errors.New("account not found")

type AccountRepository struct {
	*pg.DB
}

func NewAccountRepository(db *pg.DB) *AccountRepository {
	return &AccountRepository{
		db,
	}
}

func (r *AccountRepository) Get(ctx context.Context, id int64) (*model.Account, error) {
	var entity AccountEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return toAccountModel(&entity), nil
}
