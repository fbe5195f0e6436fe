package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewLevels(t *testing.T) {
	var buf bytes.Buffer
	New(false, &buf).Debug("hidden")
	New(false, &buf).Info("shown", "k", "v")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Debug records should be dropped unless verbose")
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "k=v") {
		t.Errorf("Unexpected output: %s", out)
	}

	buf.Reset()
	New(true, &buf).Debug("visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Error("Verbose logger should emit debug records")
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	NewJSON(false, &buf).Info("started")
	if !strings.Contains(buf.String(), `"service":"faultline"`) {
		t.Errorf("Missing service attribute: %s", buf.String())
	}
}
