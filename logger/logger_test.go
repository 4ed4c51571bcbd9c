package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestInitJSON(t *testing.T) {
	var buf bytes.Buffer

	if err := Init(&buf, "json"); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("monitor").Info(context.Background(), "frame assessed",
		String("label", "standing"), Float64("angle", 172.5), Int("frame", 3))

	var rec map[string]any

	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("log output is not json: %v: %s", err, buf.String())
	}

	if rec["component"] != "monitor" || rec["label"] != "standing" || rec["msg"] != "frame assessed" {
		t.Errorf("unexpected record: %v", rec)
	}
}

func TestSetLevelString(t *testing.T) {
	var buf bytes.Buffer

	if err := Init(&buf, "text"); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() { _ = SetLevelString("info") }()

	if err := SetLevelString("warn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx := context.Background()
	Get().Info(ctx, "hidden")
	Get().Warn(ctx, "shown", Error(errors.New("boom")))

	out := buf.String()

	if strings.Contains(out, "hidden") {
		t.Errorf("info record written at warn level: %s", out)
	}

	if !strings.Contains(out, "shown") || !strings.Contains(out, "boom") {
		t.Errorf("warn record missing: %s", out)
	}

	if err := SetLevelString("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestInitUnknownFormat(t *testing.T) {
	if err := Init(&bytes.Buffer{}, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}
