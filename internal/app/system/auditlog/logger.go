// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"

	"github.com/one-zero-eight/guard/internal/app/store/audit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config controls where audit events go.
// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only),
// "off" (disabled).
type Config struct {
	Mode string
}

// Logger records audit events for document and access operations to MongoDB
// (via audit.Store) and to structured logs (via zap). A nil *Logger is a
// no-op so tests can skip auditing entirely.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates an audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

// Log records one audit event according to the configured mode.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil || l.config.Mode == "off" {
		return
	}
	if l.config.Mode == "all" || l.config.Mode == "log" {
		l.logToZap(event)
	}
	if l.config.Mode == "all" || l.config.Mode == "db" {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("audit event write failed",
				zap.String("event_type", event.EventType),
				zap.Error(err))
		}
	}
}

// Document records a document-category event by the given actor.
func (l *Logger) Document(ctx context.Context, eventType string, actorID primitive.ObjectID, slug, fileID string, success bool, reason string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryDocument,
		EventType:     eventType,
		ActorID:       &actorID,
		Slug:          slug,
		FileID:        fileID,
		Success:       success,
		FailureReason: reason,
	})
}

// Access records an access-category event. subjectID may equal actorID for
// self-service operations like join.
func (l *Logger) Access(ctx context.Context, eventType string, actorID, subjectID primitive.ObjectID, slug string, success bool, reason string, details map[string]string) {
	l.Log(ctx, audit.Event{
		Category:      audit.CategoryAccess,
		EventType:     eventType,
		ActorID:       &actorID,
		SubjectID:     &subjectID,
		Slug:          slug,
		Success:       success,
		FailureReason: reason,
		Details:       details,
	})
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.SubjectID != nil {
		fields = append(fields, zap.String("subject_id", event.SubjectID.Hex()))
	}
	if event.Slug != "" {
		fields = append(fields, zap.String("slug", event.Slug))
	}
	if event.FileID != "" {
		fields = append(fields, zap.String("file_id", event.FileID))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}
