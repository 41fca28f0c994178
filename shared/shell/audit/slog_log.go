package audit

import (
	"context"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/book-lending-engine-go/lending"
)

const logMsgAudit = "audit"

// SlogLog writes audit entries as Info records, with details in a "details" group.
type SlogLog struct {
	logger *slog.Logger
}

// NewSlogLog creates an audit log on top of logger.
func NewSlogLog(logger *slog.Logger) *SlogLog {
	return &SlogLog{logger: logger}
}

// Record never fails.
func (l *SlogLog) Record(ctx context.Context, userID uuid.UUID, action lending.AuditAction, details map[string]string) error {
	keys := make([]string, 0, len(details))
	for key := range details {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	detailAttrs := make([]any, 0, len(keys))
	for _, key := range keys {
		detailAttrs = append(detailAttrs, slog.String(key, details[key]))
	}

	l.logger.InfoContext(ctx, logMsgAudit,
		slog.String(FieldUserID, userID.String()),
		slog.String(FieldAction, string(action)),
		slog.Group(FieldDetails, detailAttrs...),
	)

	return nil
}

var _ lending.ActivityAuditLog = (*SlogLog)(nil)
