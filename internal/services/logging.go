package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/lms-service/internal/models"
)

// ServiceLogger adds operation and audit records on top of a plain slog logger.
type ServiceLogger struct {
	logger *slog.Logger
}

func NewServiceLogger(logger *slog.Logger, component string) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", "lms-service", "component", component),
	}
}

// ===== OPERATION LOGGING =====

// LogOperation records the outcome of a service call. Client-side failures are
// logged at warn, everything unclassified at error.
func (l *ServiceLogger) LogOperation(ctx context.Context, operation, userID string, resourceID uint, resourceType string, duration time.Duration, err error) {
	level := slog.LevelInfo
	status := "success"

	if err != nil {
		kind := Kind(err)
		status = string(kind)
		switch kind {
		case KindInternal, KindUnavailable:
			level = slog.LevelError
		case KindNotFound:
			level = slog.LevelInfo
		default:
			level = slog.LevelWarn
		}
	}

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.Uint64("resource_id", uint64(resourceID)),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))

		var (
			ve      ValidationErrors
			permErr *PermissionError
		)
		if errors.As(err, &ve) {
			attrs = append(attrs, slog.Int("validation_errors_count", len(ve)))
		} else if errors.As(err, &permErr) {
			attrs = append(attrs, slog.String("permission_action", permErr.Action))
		}
	}

	l.logger.LogAttrs(ctx, level, fmt.Sprintf("%s operation %s", operation, status), attrs...)
}

// ===== AUDIT LOGGING =====

// LogAuditEvent mirrors a persisted audit entry into the log stream.
func (l *ServiceLogger) LogAuditEvent(ctx context.Context, entry *models.AuditLog) {
	attrs := []slog.Attr{
		slog.String("event_type", string(entry.EventType)),
		slog.String("user_id", entry.UserID),
		slog.String("user_role", string(entry.UserRole)),
		slog.String("target_type", entry.TargetType),
		slog.Uint64("target_id", uint64(entry.TargetID)),
		slog.Time("timestamp", entry.CreatedAt),
	}
	if len(entry.Changes) > 0 {
		attrs = append(attrs, slog.String("changes", string(entry.Changes)))
	}

	l.logger.LogAttrs(ctx, slog.LevelInfo, fmt.Sprintf("Audit: %s %s", entry.EventType, entry.TargetType), attrs...)
}
