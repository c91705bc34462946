package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/mitra-marketplace/internal/auth"
	"github.com/spec-kit/mitra-marketplace/internal/domain"
	"github.com/spec-kit/mitra-marketplace/internal/session"
	"github.com/spec-kit/mitra-marketplace/pkg/client"
	"github.com/spec-kit/mitra-marketplace/pkg/util/errorutil"
)

// DeniedError reports a guard decision that kept a command from running.
type DeniedError struct {
	Decision  auth.Decision
	Role      domain.RoleResolution
	Requested string
}

func (e *DeniedError) Error() string {
	switch e.Decision.Kind {
	case auth.DecisionWait:
		return "session is still resolving, try again"
	case auth.DecisionRedirectLogin:
		return fmt.Sprintf("not signed in: run `mitractl login` to access %s", e.Requested)
	case auth.DecisionRedirectHome:
		if role, ok := e.Role.Known(); ok {
			return fmt.Sprintf("access to %s denied for role %s (home is %s)", e.Requested, role, e.Decision.Location)
		}
		return fmt.Sprintf("access to %s denied: this account has no usable role", e.Requested)
	default:
		return "access denied"
	}
}

// gated is an open session that passed the guard.
type gated struct {
	client  *client.Client
	session *session.Context
	state   domain.SessionState
}

func (g *gated) Close() { g.session.Close() }

// openSession starts a session context over a fresh client and waits for the
// identity and role to settle.
func (a *app) openSession(ctx context.Context) (*gated, error) {
	c, err := a.newClient()
	if err != nil {
		return nil, err
	}
	sc := session.New(c, c, a.logger)
	if err := sc.Start(ctx); err != nil {
		return nil, err
	}

	settleCtx, cancel := context.WithTimeout(ctx, a.cfg.Session.SettleTimeout)
	defer cancel()
	state, err := sc.WaitSettled(settleCtx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		sc.Close()
		return nil, err
	}
	return &gated{client: c, session: sc, state: state}, nil
}

// guard opens a session and applies the route guard for the view at location.
// The returned session must be closed.
func (a *app) guard(cmd *cobra.Command, location string, allowed ...domain.Role) (*gated, error) {
	g, err := a.openSession(a.commandContext(cmd))
	if err != nil {
		return nil, err
	}
	decision := g.session.Decide(allowed, location)
	a.logger.Debug("guard decision",
		zap.String("location", location),
		zap.String("decision", decision.Kind.String()),
		zap.String("role_status", g.state.Role.Status.String()))
	if decision.Kind != auth.DecisionAllow {
		state := g.session.Snapshot()
		g.Close()
		return nil, &DeniedError{Decision: decision, Role: state.Role, Requested: location}
	}
	return g, nil
}

func (a *app) persistToken(store tokenStore) func(session.AuthEvent, *domain.Session) {
	return func(event session.AuthEvent, sess *domain.Session) {
		var err error
		switch event {
		case session.EventSignedIn, session.EventTokenRefreshed:
			if sess != nil && sess.AccessToken != "" {
				err = store.Save(sess.AccessToken)
			}
		case session.EventSignedOut, session.EventSessionExpired:
			err = store.Clear()
		}
		if err != nil {
			a.logger.Warn("session file update failed", zap.String("event", string(event)), zap.Error(err))
		}
	}
}

func (a *app) writeJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func reportError(w io.Writer, err error) {
	var de *errorutil.DomainError
	if !errors.As(err, &de) || len(de.Details) == 0 {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	keys := make([]string, 0, len(de.Details))
	for k := range de.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %v", k, de.Details[k]))
	}
	fmt.Fprintf(w, "Error: %s (%s)\n", de.Message, strings.Join(parts, "; "))
}
