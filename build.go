package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BlackMission/tencentauth/internal/client"
	"github.com/BlackMission/tencentauth/internal/config"
	"github.com/BlackMission/tencentauth/internal/domain"
	"github.com/BlackMission/tencentauth/internal/state"
	"github.com/BlackMission/tencentauth/internal/tencent"
	"github.com/BlackMission/tencentauth/internal/transport"
)

func buildClients(cfg *config.Config) (*client.Registry, error) {
	apps := make([]domain.ClientApp, len(cfg.Clients))
	for i, c := range cfg.Clients {
		apps[i] = domain.ClientApp{
			ID:               c.ID,
			Name:             c.Name,
			APIKey:           c.APIKey,
			AllowedCallbacks: c.AllowedCallbacks,
		}
	}
	return client.NewRegistry(apps)
}

// ttlSealer is satisfied by every sealer in internal/state.
type ttlSealer interface {
	state.Sealer
	SetTTL(time.Duration)
}

func buildSealer(cfg *config.Config) (state.Sealer, error) {
	key := []byte(cfg.Secrets.StateSigningKey)

	var (
		s   ttlSealer
		err error
	)
	switch cfg.State.Format {
	case config.StateFormatAEAD:
		s, err = state.NewAEADSealer(key)
	case config.StateFormatHMAC:
		s, err = state.NewSignedSealer(key)
	case config.StateFormatJWT:
		s, err = state.NewJWTSealer(key)
	default:
		return nil, fmt.Errorf("%w: unknown state format %q", domain.ErrConfiguration, cfg.State.Format)
	}
	if err != nil {
		return nil, err
	}
	s.SetTTL(cfg.State.TTL)
	return s, nil
}

// buildReplayGuard returns a nil guard for the "none" driver. The returned
// func releases the guard's connections.
func buildReplayGuard(ctx context.Context, cfg *config.Config) (state.ReplayGuard, func(), error) {
	noop := func() {}

	switch cfg.Replay.Driver {
	case config.ReplayNone:
		return nil, noop, nil
	case config.ReplayMemory:
		return state.NewMemoryReplayGuard(), noop, nil
	case config.ReplayRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Replay.RedisAddr,
			Password: cfg.Replay.RedisPassword,
			DB:       cfg.Replay.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			_ = rdb.Close()
			return nil, noop, fmt.Errorf("connecting to redis at %s: %w", cfg.Replay.RedisAddr, err)
		}
		return state.NewRedisReplayGuard(rdb, cfg.Replay.KeyPrefix), func() { _ = rdb.Close() }, nil
	default:
		return nil, noop, fmt.Errorf("%w: unknown replay driver %q", domain.ErrConfiguration, cfg.Replay.Driver)
	}
}

// handshakeOptions maps the file/env configuration onto tencent.Options.
// Unset values keep the provider defaults.
func handshakeOptions(cfg *config.Config) (tencent.Options, error) {
	tc := cfg.Tencent

	opts := tencent.DefaultOptions()
	opts.AppID = tc.AppID
	opts.AppSecret = tc.AppSecret
	if tc.Caption != "" {
		opts.Caption = tc.Caption
	}
	if len(tc.Scope) > 0 {
		opts.Scope = tc.Scope
	}
	if tc.CallbackPath != "" {
		opts.CallbackPath = tc.CallbackPath
	}
	if tc.AuthorizationEndpoint != "" {
		opts.Endpoints.AuthorizationEndpoint = tc.AuthorizationEndpoint
	}
	if tc.TokenEndpoint != "" {
		opts.Endpoints.TokenEndpoint = tc.TokenEndpoint
	}
	if tc.UserInfoEndpoint != "" {
		opts.Endpoints.UserInfoEndpoint = tc.UserInfoEndpoint
	}
	opts.Endpoints.UserProfileEndpoint = tc.UserProfileEndpoint
	if tc.BackchannelTimeout > 0 {
		opts.BackchannelTimeout = tc.BackchannelTimeout
	}
	if tc.TokenMethod != "" {
		opts.TokenRequestMethod = tc.TokenMethod
	}
	if tc.TokenPlacement != "" {
		opts.AccessTokenPlacement = tencent.TokenPlacement(tc.TokenPlacement)
	}

	if len(tc.PinnedSPKI) > 0 {
		v, err := transport.NewSPKIPinValidator(tc.PinnedSPKI...)
		if err != nil {
			return tencent.Options{}, err
		}
		opts.CertificateValidator = v
	}

	sealer, err := buildSealer(cfg)
	if err != nil {
		return tencent.Options{}, err
	}
	opts.Sealer = sealer
	return opts, nil
}

func buildHandshake(cfg *config.Config, replay state.ReplayGuard, obs tencent.Observer) (*tencent.Handshake, error) {
	opts, err := handshakeOptions(cfg)
	if err != nil {
		return nil, err
	}
	opts.ReplayGuard = replay
	opts.Observer = obs
	return tencent.New(opts)
}
