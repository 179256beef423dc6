package portalAuth

import (
	"context"
	"errors"

	"github.com/MrEthical07/portalAuth/internal/audit"
	"github.com/MrEthical07/portalAuth/session"
)

type (
	// AuditEvent is one recorded session transition.
	AuditEvent = audit.Event
	// AuditSink receives audit events from the Manager's dispatcher.
	AuditSink      = audit.Sink
	NoOpSink       = audit.NoOpSink
	ChannelSink    = audit.ChannelSink
	JSONWriterSink = audit.JSONWriterSink
	LogrusSink     = audit.LogrusSink
)

var (
	NewChannelSink    = audit.NewChannelSink
	NewJSONWriterSink = audit.NewJSONWriterSink
	NewLogrusSink     = audit.NewLogrusSink
)

const (
	AuditEventLoginSuccess        = "login_success"
	AuditEventLoginFailure        = "login_failure"
	AuditEventMalformedCredential = "malformed_credential"
	AuditEventStartup             = "startup_validate"
	AuditEventRegistrationStatus  = "registration_status"
	AuditEventLogout              = "logout"
)

// AuditErrorCode is the stable error classification carried in
// AuditEvent.Error.
type AuditErrorCode string

const (
	auditErrAuthentication AuditErrorCode = "authentication"
	auditErrTransport      AuditErrorCode = "transport"
	auditErrMalformed      AuditErrorCode = "malformed_credential"
	auditErrMissingProfile AuditErrorCode = "missing_profile"
	auditErrPersist        AuditErrorCode = "persist_failed"
	auditErrCanceled       AuditErrorCode = "canceled"
	auditErrInternal       AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrMalformedCredential):
		return auditErrMalformed
	case errors.Is(err, ErrMissingProfile):
		return auditErrMissingProfile
	case errors.Is(err, ErrPersist):
		return auditErrPersist
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return auditErrCanceled
	case errors.Is(err, ErrAuthentication):
		return auditErrAuthentication
	case errors.Is(err, ErrTransport):
		return auditErrTransport
	}
	return auditErrInternal
}

func (m *Manager) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	user *session.Profile,
	err error,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		EventType: eventType,
		Success:   success,
		Metadata:  metadata,
	}
	if user != nil {
		event.UserID = user.ID
		event.Role = user.Role
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	m.audit.Emit(ctx, event)
}
