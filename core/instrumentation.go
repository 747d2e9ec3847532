package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/overlay-core/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var eventsPlayed, _ = meter.Int64Counter(
	"orchestration.events_played",
	metric.WithDescription("Outbound events handed to orchestration callbacks"),
	metric.WithUnit("{event}"),
)
