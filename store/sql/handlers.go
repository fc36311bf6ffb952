package sqlstore

import (
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

func sessionStateHandlers() repository.ModelHandlers[*sessionStateRecord] {
	return repository.ModelHandlers[*sessionStateRecord]{
		NewRecord: func() *sessionStateRecord {
			return &sessionStateRecord{}
		},
		GetID: func(record *sessionStateRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return parseUUID(record.ID)
		},
		SetID: func(record *sessionStateRecord, id uuid.UUID) {
			if record == nil {
				return
			}
			record.ID = id.String()
		},
		GetIdentifier: func() string {
			return "client_id"
		},
		GetIdentifierValue: func(record *sessionStateRecord) string {
			if record == nil {
				return ""
			}
			return strings.TrimSpace(record.ClientID)
		},
	}
}

func parseUUID(value string) uuid.UUID {
	parsed, err := uuid.Parse(strings.TrimSpace(value))
	if err != nil {
		return uuid.Nil
	}
	return parsed
}
