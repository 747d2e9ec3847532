package tracking

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/overlay-core/core/tracking"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var anchorEventCounter, _ = meter.Int64Counter(
	"tracking.anchor_events",
	metric.WithDescription("Anchor events consumed by the stream processor"),
	metric.WithUnit("{event}"),
)

var assetLoadCounter, _ = meter.Int64Counter(
	"tracking.asset_loads",
	metric.WithDescription("Per-anchor asset instantiations, by outcome"),
	metric.WithUnit("{load}"),
)
