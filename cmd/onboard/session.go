package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/arklim/homescout-onboarding/internal/core/port"
	"github.com/arklim/homescout-onboarding/internal/infra/config"
	"github.com/arklim/homescout-onboarding/internal/infra/identity"
	"github.com/arklim/homescout-onboarding/internal/infra/logger"
	"github.com/arklim/homescout-onboarding/internal/infra/security"
	"github.com/arklim/homescout-onboarding/internal/repository/memory"
	"github.com/arklim/homescout-onboarding/internal/repository/sqlite"
	"github.com/arklim/homescout-onboarding/internal/transport/client"
	"github.com/arklim/homescout-onboarding/internal/usecase"
)

// localDevSecret signs CLI sessions when no dev secret is configured.
const localDevSecret = "homescout-local-development"

type sessionOptions struct {
	statePath string
	apiURL    string
	ephemeral bool
	verbose   bool

	// store, when set, is used instead of opening one and is left open.
	store       port.KeyValueStore
	gatewayOpts []identity.LocalOption
}

// clientSession is one CLI invocation's view of the device.
type clientSession struct {
	store     port.KeyValueStore
	closer    io.Closer
	auth      *usecase.AuthState
	navigator *usecase.Navigator
	gateway   *identity.LocalAuthGateway
	flow      *usecase.OnboardingFlow
	logger    *zap.Logger
}

func openSession(ctx context.Context, opts sessionOptions) (*clientSession, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if opts.verbose {
		log, err = logger.New(cfg.App.Env, "debug")
		if err != nil {
			return nil, fmt.Errorf("init logger: %w", err)
		}
	}

	s := &clientSession{logger: log}
	switch {
	case opts.store != nil:
		s.store = opts.store
	case opts.ephemeral:
		s.store = memory.NewKeyValueStore()
	default:
		statePath := firstNonEmpty(opts.statePath, cfg.Client.StatePath)
		store, err := sqlite.Open(statePath)
		if err != nil {
			return nil, err
		}
		s.store = store
		s.closer = store
		log.Debug("opened local state store", zap.String("path", store.Path()))
	}

	secret := firstNonEmpty(cfg.Identity.DevSecret, localDevSecret)
	tokens, err := security.NewDevTokenManager(secret, cfg.Identity.DevIssuer, cfg.Identity.DevTokenTTL)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.gateway = identity.NewLocalAuthGateway(s.store, tokens, log, opts.gatewayOpts...)

	preferences, err := client.NewPreferencesClient(
		firstNonEmpty(opts.apiURL, cfg.Client.APIBaseURL),
		cfg.Client.RequestTimeout,
		log,
		client.WithTokenSource(s.gateway.AccessToken),
	)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.auth = usecase.NewAuthState(log)
	s.navigator = usecase.NewNavigator(s.store, log)
	s.flow = usecase.NewOnboardingFlow(s.auth, s.navigator, s.gateway, preferences, log)

	if _, err := s.flow.RestoreSession(ctx); err != nil && !errors.Is(err, usecase.ErrAuthentication) {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *clientSession) Close() {
	if s.closer != nil {
		_ = s.closer.Close()
	}
	_ = s.logger.Sync()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
