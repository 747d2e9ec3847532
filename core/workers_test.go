package orchestration

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNamedWorkerSafeRun(t *testing.T) {
	errBoom := errors.New("boom")

	testCases := []struct {
		name     string
		run      func(context.Context) error
		expected string
	}{
		{name: "success", run: func(context.Context) error { return nil }},
		{name: "failure", run: func(context.Context) error { return errBoom }, expected: "tracking worker failed: boom"},
		{name: "panic", run: func(context.Context) error { panic("unexpected") }, expected: "tracking worker panicked: unexpected"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			err := namedWorker{name: "tracking", run: testCase.run}.safeRun(context.Background())
			if testCase.expected == "" {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), testCase.expected) {
				t.Fatalf("expected %q, got %v", testCase.expected, err)
			}
		})
	}
}

func TestRunWorkersCancelsOthersOnFailure(t *testing.T) {
	errBoom := errors.New("boom")
	cancelled := make(chan struct{})

	err := runWorkers(context.Background(),
		namedWorker{name: "voice", run: func(context.Context) error { return errBoom }},
		namedWorker{name: "tracking", run: func(ctx context.Context) error {
			select {
			case <-ctx.Done():
				close(cancelled)
			case <-time.After(2 * time.Second):
			}
			return nil
		}},
	)

	if !errors.Is(err, errBoom) {
		t.Fatalf("expected the voice failure, got %v", err)
	}
	select {
	case <-cancelled:
	default:
		t.Fatalf("expected the tracking worker to be cancelled")
	}
}
