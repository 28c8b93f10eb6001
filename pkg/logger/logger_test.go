package logger

import (
	"fmt"
	"sync"
	"testing"
)

type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) add(level, message string, keyvals ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprint(level, " ", message, keyvals))
}

func (r *recorder) Log(m string, kv ...any)   { r.add("log", m, kv...) }
func (r *recorder) Debug(m string, kv ...any) { r.add("debug", m, kv...) }
func (r *recorder) Info(m string, kv ...any)  { r.add("info", m, kv...) }
func (r *recorder) Warn(m string, kv ...any)  { r.add("warn", m, kv...) }
func (r *recorder) Error(m string, kv ...any) { r.add("error", m, kv...) }
func (r *recorder) Fatal(m string, kv ...any) { r.add("fatal", m, kv...) }

func TestDispatchToAllBackends(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Init(a, b)
	defer Init()

	Info("[Test] hello", "k", 1)
	Log("[Test] plain", "k", 2)

	for _, r := range []*recorder{a, b} {
		if len(r.lines) != 2 {
			t.Fatalf("expected 2 lines, got %d", len(r.lines))
		}
		if r.lines[0] != "info [Test] hello[k 1]" {
			t.Fatalf("unexpected line %q", r.lines[0])
		}
		if r.lines[1] != "log [Test] plain[k 2]" {
			t.Fatalf("keyvals dropped for Log: %q", r.lines[1])
		}
	}
}

func TestNoBackendsIsSilent(t *testing.T) {
	Init()
	Warn("nothing listens")
	Debug("still nothing")
}
