package recipient

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"sort"
	"strings"

	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/model"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/internal/phone"
	"github.com/fatimagithubit/WhatsX-Adavanced-Automation-Messaging/pkg/logger"
)

// Source is the recipient input for one campaign. Exactly one variant
// is supplied per resolution.
type Source interface {
	isSource()
}

// ManualSource is newline-delimited free text, one number per line.
type ManualSource struct {
	Text string
}

// FileSource is tabular CSV data. The phone column is whichever header
// contains "phone", case-insensitive.
type FileSource struct {
	Data []byte
}

// ContactsSource selects stored contacts by id. Ids not owned by the
// resolving account are excluded, not rejected.
type ContactsSource struct {
	IDs []int64
}

func (ManualSource) isSource()   {}
func (FileSource) isSource()     {}
func (ContactsSource) isSource() {}

// Entry is one resolved recipient: the canonical phone number and, when
// the number came from the address book, the source contact.
type Entry struct {
	Phone     string
	ContactID *int64
}

// ContactStore supplies owner-scoped contact records.
type ContactStore interface {
	ListByIDs(ctx context.Context, ownerID int64, ids []int64) ([]*model.Contact, error)
}

type Resolver struct {
	contacts ContactStore
	norm     *phone.Normalizer
}

func NewResolver(contacts ContactStore, norm *phone.Normalizer) *Resolver {
	return &Resolver{contacts: contacts, norm: norm}
}

// Resolve merges the source into a de-duplicated, deterministic list of
// canonical numbers. Values that fail normalization are dropped
// silently; an empty result is a hard validation failure.
func (r *Resolver) Resolve(ctx context.Context, ownerID int64, src Source) ([]Entry, error) {
	if src == nil {
		return nil, model.NewValidationError("a recipient source is required")
	}

	seen := make(map[string]Entry)
	dropped := 0

	add := func(raw string, contactID *int64) {
		p, err := r.norm.Normalize(raw)
		if err != nil {
			dropped++
			return
		}
		if _, ok := seen[p]; ok {
			return
		}
		seen[p] = Entry{Phone: p, ContactID: contactID}
	}

	switch s := src.(type) {
	case ManualSource:
		text := strings.TrimSpace(s.Text)
		if text == "" {
			return nil, model.NewValidationError("manual entry selected, but no numbers were provided")
		}
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				add(line, nil)
			}
		}

	case FileSource:
		if len(bytes.TrimSpace(s.Data)) == 0 {
			return nil, model.NewValidationError("file upload selected, but the file is empty")
		}
		if err := r.resolveCSV(s.Data, add); err != nil {
			return nil, err
		}

	case ContactsSource:
		if len(s.IDs) == 0 {
			return nil, model.NewValidationError("contact selection is empty")
		}
		contacts, err := r.contacts.ListByIDs(ctx, ownerID, s.IDs)
		if err != nil {
			return nil, err
		}
		for _, c := range contacts {
			id := c.ID
			add(c.Phone, &id)
		}

	default:
		return nil, model.NewValidationError("a valid recipient source was not selected")
	}

	if len(seen) == 0 {
		return nil, model.NewValidationError("no valid recipients found, check number format (e.g. 92XXXXXXXXXX)")
	}
	if dropped > 0 {
		logger.Debug("dropped unparsable recipient entries", "owner_id", ownerID, "dropped", dropped)
	}

	entries := make([]Entry, 0, len(seen))
	for _, e := range seen {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Phone < entries[j].Phone })

	return entries, nil
}

func (r *Resolver) resolveCSV(data []byte, add func(raw string, contactID *int64)) error {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return model.NewValidationError("file could not be parsed as CSV")
	}

	phoneCol := -1
	for i, col := range header {
		if strings.Contains(strings.ToLower(col), "phone") {
			phoneCol = i
			break
		}
	}
	if phoneCol < 0 {
		return model.NewValidationError("file must have a column with 'phone' in the header (e.g. phone, Phone Number)")
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed row, skip it like an unparsable number.
			continue
		}
		if phoneCol < len(row) {
			add(row[phoneCol], nil)
		}
	}
	return nil
}
