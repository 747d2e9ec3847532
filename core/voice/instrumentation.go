package voice

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/overlay-core/core/voice"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var commandCounter, _ = meter.Int64Counter(
	"voice.commands_recognized",
	metric.WithDescription("Commands recognized from awake transcripts, by strategy"),
	metric.WithUnit("{command}"),
)
