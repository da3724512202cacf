package repository

import (
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
)

type AccountEntity struct {
	ID           int64  `db:"id"            gorm:"primaryKey;autoIncrement;column:id"`
	Username     string `db:"username"      gorm:"column:username;not null;uniqueIndex"`
	UserType     string `db:"user_type"     gorm:"column:user_type;not null;default:enduser"`
	MessageQuota int    `db:"message_quota" gorm:"column:message_quota;not null;default:1000"`
}

func (AccountEntity) TableName() string { return "accounts" }

func toAccountModel(e *AccountEntity) *model.Account {
	if e == nil {
		return nil
	}
	return &model.Account{
		ID:           e.ID,
		Username:     e.Username,
		UserType:     e.UserType,
		MessageQuota: e.MessageQuota,
	}
}
