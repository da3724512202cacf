package services

import (
	"context"
	"time"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/pg"
)

type HealthService struct {
	db *pg.DB
}

func NewHealthService(db *pg.DB) *HealthService {
	return &HealthService{db: db}
}

func (s *HealthService) Get() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.db.Read(ctx).WithContext(ctx).Exec("SELECT 1").Error
}
