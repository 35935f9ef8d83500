package controller

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
)

const scopeName = "github.com/koscakluka/foundry-core/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	appliedFrames, _      = meter.Int64Counter("foundry.frames.applied")
	discardedSnapshots, _ = meter.Int64Counter("foundry.snapshots.discarded")
)
