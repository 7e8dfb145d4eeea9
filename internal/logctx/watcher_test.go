package logctx

import (
	"bytes"
	"context"
	"fastrelay/internal/global"
	"strings"
	"testing"
)

func TestWatcherDrainsAndSuppresses(t *testing.T) {
	done := make(chan struct{})
	ctx := New(context.Background(), global.NSTest, 5, done)
	logger := GetLogger(ctx)

	// Fill the queue before the watcher starts so every event is drained in order
	const repeats = 11
	msg := "duplicate-message\n"
	for i := 0; i < repeats; i++ {
		LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "%s", msg)
	}
	LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "final\n")

	var output bytes.Buffer
	close(done)
	StartWatcher(logger, &output)
	logger.Wake()
	logger.Wait()

	out := output.String()
	if strings.Count(out, "duplicate-message") != 2 {
		t.Fatalf("expected message once plus one suppression line, got:\n%s", out)
	}
	if !strings.Contains(out, "Suppressed 10 repeated messages") {
		t.Fatalf("expected suppression notice, got:\n%s", out)
	}
	if !strings.Contains(out, "final") {
		t.Fatalf("expected trailing event, got:\n%s", out)
	}
}
