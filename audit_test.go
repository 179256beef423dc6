package portalAuth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/MrEthical07/portalAuth/gateway"
)

func TestAuditErrorCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want AuditErrorCode
	}{
		{nil, ""},
		{&MalformedCredentialError{Reason: "empty"}, auditErrMalformed},
		{ErrMissingProfile, auditErrMissingProfile},
		{fmt.Errorf("%w: %w", ErrPersist, errors.New("disk")), auditErrPersist},
		{&gateway.Error{Op: "login", StatusCode: 401}, auditErrAuthentication},
		{&gateway.Error{Op: "login", StatusCode: 500}, auditErrTransport},
		{&gateway.Error{Op: "login", Err: context.Canceled}, auditErrCanceled},
		{errors.New("other"), auditErrInternal},
	}
	for _, tc := range cases {
		if got := auditErrorCode(tc.err); got != tc.want {
			t.Fatalf("auditErrorCode(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestAuditDefaultsToLoggerSink(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	env := newTestEnv(t, func(b *Builder) {
		b.config.Audit = AuditConfig{Enabled: true, BufferSize: 8}
		b.WithLogger(logger)
	})

	if _, err := env.manager.Login(context.Background(), "meera@example.com", "correct-password-123"); err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	cred := env.manager.Snapshot().Credential
	env.manager.Logout(context.Background())
	env.manager.Close()

	var audits []string
	for _, e := range hook.AllEntries() {
		if e.Message == "session audit" {
			audits = append(audits, fmt.Sprint(e.Data["event"]))
		}
		if strings.Contains(e.Message, cred) {
			t.Fatalf("credential leaked into log message %q", e.Message)
		}
		for k, v := range e.Data {
			if strings.Contains(fmt.Sprint(v), cred) {
				t.Fatalf("credential leaked into log field %q", k)
			}
		}
	}
	if len(audits) != 2 || audits[0] != AuditEventLoginSuccess || audits[1] != AuditEventLogout {
		t.Fatalf("unexpected audit entries %v", audits)
	}
}

func TestAuditDisabledDropsNothing(t *testing.T) {
	env := newTestEnv(t, nil)
	env.manager.Logout(context.Background())
	if env.manager.AuditDropped() != 0 {
		t.Fatalf("expected no drops without a dispatcher")
	}
}
