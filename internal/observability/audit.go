package observability

import (
	"context"
	"os"
	"path/filepath"

	"github.com/pborman/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iamwavecut/ngguard/internal/moderation"
)

// AuditLog writes one JSON line per enforced decision.
type AuditLog struct {
	logger *zap.Logger
}

// NewAuditLog appends to path, creating its directory if needed.
func NewAuditLog(path string) (*AuditLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.Sampling = nil
	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &AuditLog{logger: logger.Named("audit")}, nil
}

// NewAuditLogWithCore is used by tests to capture entries.
func NewAuditLogWithCore(core zapcore.Core) *AuditLog {
	return &AuditLog{logger: zap.New(core).Named("audit")}
}

func (a *AuditLog) Record(ctx context.Context, msg moderation.IncomingMessage, decision moderation.Decision) {
	if decision.Verdict == moderation.VerdictIgnore {
		return
	}
	fields := []zap.Field{
		zap.String("id", uuid.New()),
		zap.Int64("chat_id", msg.GroupID),
		zap.Int64("user_id", msg.Sender.ID),
		zap.String("username", msg.Sender.Username),
		zap.Int("message_id", msg.MessageID),
		zap.String("verdict", string(decision.Verdict)),
		zap.String("reason", string(decision.Reason)),
	}
	if decision.ViolationCount > 0 {
		fields = append(fields, zap.Int("violations", decision.ViolationCount))
	}
	if decision.Remaining > 0 {
		fields = append(fields, zap.Duration("remaining", decision.Remaining))
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		fields = append(fields, zap.String("trace_id", sc.TraceID().String()))
	}
	a.logger.Info("decision", fields...)
}

func (a *AuditLog) Close() error {
	return a.logger.Sync()
}
