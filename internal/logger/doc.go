// Package logger provides a process-wide zap logger with request-scoped
// children carried in context.Context.
//
// Initialize once in main:
//
//	logger.Init(logger.Config{Env: cfg.Log.Env, Level: cfg.Log.Level})
//	defer logger.Sync()
//
// Inside handlers and the handshake:
//
//	log := logger.From(ctx)
//	log.Info("callback received", logger.Stage("callback"))
//
// Access tokens, client secrets, authorization codes and sealed state values
// must never be passed to a logger.
package logger
