package services

import (
	"context"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
)

type TemplateLister interface {
	ListForOwner(ctx context.Context, ownerID int64) ([]*model.MessageTemplate, error)
}

type ContactLister interface {
	ListByOwner(ctx context.Context, ownerID int64) ([]*model.Contact, error)
}

// DirectoryService serves the pickers on the campaign form: saved
// contacts and reusable templates.
type DirectoryService struct {
	templates TemplateLister
	contacts  ContactLister
}

func NewDirectoryService(templates TemplateLister, contacts ContactLister) *DirectoryService {
	return &DirectoryService{templates: templates, contacts: contacts}
}

func (s *DirectoryService) Templates(ctx context.Context, ownerID int64) ([]*model.MessageTemplate, error) {
	return s.templates.ListForOwner(ctx, ownerID)
}

func (s *DirectoryService) Contacts(ctx context.Context, ownerID int64) ([]*model.Contact, error) {
	return s.contacts.ListByOwner(ctx, ownerID)
}
