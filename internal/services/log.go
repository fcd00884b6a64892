package services

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// logFor returns the request-scoped logger carried by ctx, or the global
// logger when none is attached.
func logFor(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l == nil || l.GetLevel() == zerolog.Disabled {
		return &log.Logger
	}
	return l
}
