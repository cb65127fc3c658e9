package tracking_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/repokeeper/repokeeper/domain/operation"
	"github.com/repokeeper/repokeeper/infrastructure/tracking"
)

func TestFanout_MapsIndexes(t *testing.T) {
	mem := tracking.NewMemory(0)
	mem.Append(operation.Snapshot{Operation: "pre-existing"})
	fake := &fakeSink{}
	fan := tracking.NewFanout(mem, nil, fake)

	index := fan.Append(operation.Snapshot{Operation: "Clone", Running: true})
	if index != 0 {
		t.Fatalf("expected fanout index 0, got %d", index)
	}

	fan.Update(index, operation.Snapshot{Operation: "Clone", Total: 1})

	list := mem.List()
	if list[1].Operation != "Clone" || list[1].Total != 1 {
		t.Fatalf("memory entry not updated through its own index: %+v", list)
	}
	if fake.count() != 1 {
		t.Fatalf("expected 1 update on fake sink, got %d", fake.count())
	}

	// The mapping is gone once the log has stopped.
	fan.Update(index, operation.Snapshot{Operation: "late"})
	if fake.count() != 1 {
		t.Fatalf("expected no update after stop, got %d", fake.count())
	}
}

func TestLoggingSink(t *testing.T) {
	var buf bytes.Buffer
	sink := tracking.NewLoggingSink(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	sink.Append(operation.Snapshot{Operation: "Compress Repository", Code: 3, Running: true})
	sink.Update(0, operation.Snapshot{Operation: "Compress Repository", Running: true})
	sink.Update(0, operation.Snapshot{
		Operation: "Compress Repository",
		Code:      3,
		Steps: []operation.StepSnapshot{
			{Name: "zip", Status: operation.StatusNormal, Finished: true},
			{Name: "move failed", Description: "exit code 1", Status: operation.StatusError, Finished: true},
		},
	})

	out := buf.String()
	if strings.Count(out, "\n") != 2 {
		t.Fatalf("expected a start and a finish line, got:\n%s", out)
	}
	if !strings.Contains(out, "Compress Repository started") {
		t.Fatalf("missing start line:\n%s", out)
	}
	if !strings.Contains(out, "level=WARN") || !strings.Contains(out, `step="move failed"`) {
		t.Fatalf("expected warning naming the failed step:\n%s", out)
	}
}
