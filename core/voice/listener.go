package voice

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/koscakluka/overlay-core/core/commands"
	"github.com/koscakluka/overlay-core/core/transcripts"
	"go.opentelemetry.io/otel/codes"
)

const DefaultRestartDelay = 500 * time.Millisecond

type ListenOption func(*listenOptions)

type listenOptions struct {
	restartDelay time.Duration
	onCommand    func(commands.Match)
}

// WithRestartDelay sets the pause between closing a transcript stream and
// opening the next one.
func WithRestartDelay(d time.Duration) ListenOption {
	return func(o *listenOptions) {
		if d >= 0 {
			o.restartDelay = d
		}
	}
}

func WithCommandHandler(onCommand func(commands.Match)) ListenOption {
	return func(o *listenOptions) {
		if onCommand != nil {
			o.onCommand = onCommand
		}
	}
}

// Listen feeds transcripts from source into session until ctx is done or the
// source is exhausted. The stream is reopened after every recognized command
// and whenever it ends on its own, so the session stays available.
func Listen(ctx context.Context, source transcripts.Source, session *Session, opts ...ListenOption) error {
	if source == nil || session == nil {
		return fmt.Errorf("listen: source and session are required")
	}

	options := listenOptions{
		restartDelay: DefaultRestartDelay,
		onCommand:    func(commands.Match) {},
	}
	for _, opt := range opts {
		opt(&options)
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := listenOnce(ctx, source, session, options.onCommand); err != nil {
			if errors.Is(err, transcripts.ErrSourceClosed) {
				logger.Info("transcript source closed, listening stopped")
				return nil
			}
			return err
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(options.restartDelay):
		}
	}
}

func listenOnce(ctx context.Context, source transcripts.Source, session *Session, onCommand func(commands.Match)) error {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	streamCtx, span := tracer.Start(streamCtx, "listen")
	defer span.End()

	stream, err := source.Transcripts(streamCtx)
	if err != nil {
		if !errors.Is(err, transcripts.ErrSourceClosed) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return fmt.Errorf("failed to open transcript stream: %w", err)
	}

	for transcript := range stream {
		if match, ok := session.HandleTranscript(streamCtx, transcript); ok {
			onCommand(match)
			break
		}
	}

	return nil
}
