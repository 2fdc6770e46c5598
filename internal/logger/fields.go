package logger

import (
	"time"

	"go.uber.org/zap"
)

// RequestID tags the inbound HTTP request.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

func Method(v string) zap.Field {
	return zap.String("method", v)
}

func Path(v string) zap.Field {
	return zap.String("path", v)
}

func Status(v int) zap.Field {
	return zap.Int("status", v)
}

func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// AttemptID correlates every entry of one login attempt.
func AttemptID(v string) zap.Field {
	return zap.String("attempt_id", v)
}

func ClientID(v string) zap.Field {
	return zap.String("client_id", v)
}

// Stage is the handshake step that produced the entry.
func Stage(v string) zap.Field {
	return zap.String("stage", v)
}

func Outcome(v string) zap.Field {
	return zap.String("outcome", v)
}

func Endpoint(v string) zap.Field {
	return zap.String("endpoint", v)
}

// OpenID is the provider-assigned user id. It is an identifier, not a credential.
func OpenID(v string) zap.Field {
	return zap.String("openid", v)
}

func Component(v string) zap.Field {
	return zap.String("component", v)
}

func Err(err error) zap.Field {
	return zap.Error(err)
}
