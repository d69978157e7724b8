package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	reg, m := NewRegistry()

	m.CommandExecutions.WithLabelValues("dealers list", "true").Inc()

	metricFamilies, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metricFamilies {
		if mf.GetName() == "wakanet_command_executions_total" {
			found = true
			break
		}
	}

	if !found {
		t.Error("metrics not registered with custom registry")
	}
}

func TestWriteTextfile(t *testing.T) {
	reg, m := NewRegistry()
	m.SessionEnded("idle timeout")

	path := filepath.Join(t.TempDir(), "wakanet.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	if !strings.Contains(string(data), `wakanet_session_teardowns_total{reason="idle timeout"} 1`) {
		t.Errorf("unexpected textfile contents:\n%s", data)
	}
}

func TestMultipleRegistries(t *testing.T) {
	reg1, m1 := NewRegistry()
	reg2, m2 := NewRegistry()

	m1.CommandExecutions.WithLabelValues("a", "true").Inc()
	m2.CommandExecutions.WithLabelValues("b", "true").Inc()

	if _, err := reg1.Gather(); err != nil {
		t.Fatalf("failed to gather from reg1: %v", err)
	}
	if _, err := reg2.Gather(); err != nil {
		t.Fatalf("failed to gather from reg2: %v", err)
	}

	if m1 == m2 {
		t.Error("expected different metrics instances")
	}
}
