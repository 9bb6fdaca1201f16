// README: Service stack bound to one platform credential, and the session that swaps it.
package app

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"fleetops/internal/config"
	"fleetops/internal/logger"
	"fleetops/internal/modules/billing"
	"fleetops/internal/modules/dispatch"
	"fleetops/internal/modules/fleet"
	"fleetops/internal/modules/matching"
	"fleetops/internal/modules/schedule"
	"fleetops/internal/platform"
)

var ErrEmptyToken = errors.New("token is required")

// Deps are the credential-independent pieces every stack shares. Cache and Archive may be
// nil.
type Deps struct {
	Platform config.PlatformConfig
	Location *time.Location
	Cache    fleet.RideCache
	Archive  billing.ReportStore
	Log      *zap.Logger
}

// Stack is every service built over one platform client.
type Stack struct {
	Client   *platform.Client
	Fleet    *fleet.Service
	Matcher  *matching.Matcher
	Dispatch *dispatch.Service
	Billing  *billing.Service
	Schedule *schedule.Service
}

func NewStack(client *platform.Client, deps Deps) *Stack {
	log := logger.OrNop(deps.Log)
	fleetSvc := fleet.NewService(client, deps.Platform, deps.Cache, log.Named("fleet"))
	matcher := matching.NewMatcher(deps.Location)
	exec := dispatch.NewExecutor(client, log.Named("dispatch"))
	return &Stack{
		Client:   client,
		Fleet:    fleetSvc,
		Matcher:  matcher,
		Dispatch: dispatch.NewService(fleetSvc, matcher, exec, log.Named("dispatch")),
		Billing:  billing.NewService(fleetSvc, deps.Archive, log.Named("billing")),
		Schedule: schedule.NewService(fleetSvc, log.Named("schedule")),
	}
}

// Session holds the current stack. Readers take one snapshot per operation, so a token
// rotation never changes credentials under a running batch.
type Session struct {
	current atomic.Pointer[Stack]
	deps    Deps
	log     *zap.Logger

	mu sync.Mutex
}

func NewSession(client *platform.Client, deps Deps) *Session {
	s := &Session{deps: deps, log: logger.OrNop(deps.Log)}
	s.current.Store(NewStack(client, deps))
	return s
}

func (s *Session) Current() *Stack {
	return s.current.Load()
}

// Rotate verifies token against the platform and swaps it in. On failure the previous
// stack stays current.
func (s *Session) Rotate(ctx context.Context, token string) (platform.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return platform.Account{}, ErrEmptyToken
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	client := s.Current().Client.WithToken(token)
	acct, err := client.VerifyConnection(ctx)
	if err != nil {
		s.log.Warn("token rotation rejected", zap.Error(err))
		return platform.Account{}, err
	}
	s.current.Store(NewStack(client, s.deps))
	s.log.Info("platform token rotated", zap.String("account", acct.Name), zap.String("scope", acct.Scope))
	return acct, nil
}
