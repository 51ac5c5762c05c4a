package service

import (
	"context"
	"log/slog"
	"time"

	domainauth "github.com/target/aquaops-console/internal/domain/auth"
	"github.com/target/aquaops-console/internal/ports"
)

// Audit actions emitted by the session subsystem.
const (
	AuditActionLogin  = "LOGIN"
	AuditActionLogout = "LOGOUT"
	AuditResourceAuth = "AUTH"
)

// AuditLoggerOptions groups dependencies for AuditLogger.
type AuditLoggerOptions struct {
	Sink    ports.AuditSink // Optional: nil disables auditing
	Timeout time.Duration
	Logger  *slog.Logger
}

// AuditLogger records audit entries as detached tasks. Failures are logged and never reach the caller.
type AuditLogger struct {
	sink  ports.AuditSink
	clock TimeProvider
	tasks *detachedTasks
}

// NewAuditLogger constructs an AuditLogger.
func NewAuditLogger(opts AuditLoggerOptions) *AuditLogger {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		sink:  opts.Sink,
		clock: RealTimeProvider{},
		tasks: newDetachedTasks(opts.Timeout, logger.With("component", "audit")),
	}
}

// Record sends entry without waiting. A zero Timestamp is filled in.
func (a *AuditLogger) Record(ctx context.Context, entry domainauth.AuditEntry) {
	if a == nil || a.sink == nil {
		return
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = a.clock.Now().UTC()
	}
	a.tasks.Go(ctx, "audit."+entry.Action, func(ctx context.Context) error {
		return a.sink.Audit(ctx, entry)
	})
}

// RecordAuth records a LOGIN/LOGOUT entry for u.
func (a *AuditLogger) RecordAuth(ctx context.Context, action string, u *domainauth.User) {
	entry := domainauth.AuditEntry{Action: action, Resource: AuditResourceAuth}
	if u != nil {
		entry.UserID = u.UserID
		entry.OrganizationID = u.OrganizationID
	}
	if meta := AuditMetadataFromContext(ctx); meta.IP != "" || meta.UserAgent != "" {
		entry.IP = meta.IP
		entry.UserAgent = meta.UserAgent
	}
	a.Record(ctx, entry)
}

// Wait blocks until in-flight audit deliveries finish.
func (a *AuditLogger) Wait() {
	if a == nil {
		return
	}
	a.tasks.Wait()
}

// AuditMetadata carries request attributes copied into audit entries.
type AuditMetadata struct {
	IP        string
	UserAgent string
}

type auditMetadataKey struct{}

// WithAuditMetadata stores request attributes for audit entries created under ctx.
func WithAuditMetadata(ctx context.Context, meta AuditMetadata) context.Context {
	return context.WithValue(ctx, auditMetadataKey{}, meta)
}

// AuditMetadataFromContext returns request attributes stored by WithAuditMetadata.
func AuditMetadataFromContext(ctx context.Context) AuditMetadata {
	meta, _ := ctx.Value(auditMetadataKey{}).(AuditMetadata)
	return meta
}
