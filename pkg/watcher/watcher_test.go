package watcher

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		path     string
		want     ChangeType
		relevant bool
	}{
		{"/ws/build.gradle", ChangeTypeBuildFile, true},
		{"/ws/app/build.gradle.kts", ChangeTypeBuildFile, true},
		{"/ws/pom.xml", ChangeTypeBuildFile, true},
		{"/ws/src/Main.java", ChangeTypeSource, true},
		{"/ws/src/Repo.kt", ChangeTypeSource, true},
		{"/ws/src/Shape.scala", ChangeTypeSource, true},
		{"/ws/README.md", 0, false},
		{"/ws/src/Main.java.swp", 0, false},
	}

	for _, tt := range tests {
		got, relevant := Classify(tt.path)
		if relevant != tt.relevant || (relevant && got != tt.want) {
			t.Errorf("Classify(%q) = (%v, %v), want (%v, %v)", tt.path, got, relevant, tt.want, tt.relevant)
		}
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		event ChangeEvent
		want  string
	}{
		{ChangeEvent{Type: ChangeTypeBuildFile, Paths: []string{"/ws/build.gradle"}}, "build.gradle changed"},
		{ChangeEvent{Type: ChangeTypeSource, Paths: []string{"/ws/B.java", "/ws/A.java", "/ws/x/A.java"}}, "A.java, B.java changed"},
		{ChangeEvent{Type: ChangeTypeSource, Paths: []string{"a/A.kt", "B.kt", "C.kt", "D.kt"}}, "4 source files changed"},
		{ChangeEvent{Type: ChangeTypeBuildFile}, "build changed"},
	}

	for _, tt := range tests {
		if got := Describe(tt.event); got != tt.want {
			t.Errorf("Describe(%v) = %q, want %q", tt.event.Paths, got, tt.want)
		}
	}
}

func TestDebouncer_BatchesAndOrders(t *testing.T) {
	input := make(chan ChangeEvent)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDebouncer(input, 50*time.Millisecond, time.Second)
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypeSource, Paths: []string{"A.java"}}
	input <- ChangeEvent{Type: ChangeTypeSource, Paths: []string{"A.java", "B.java"}}
	input <- ChangeEvent{Type: ChangeTypeBuildFile, Paths: []string{"build.gradle"}}

	first := receive(t, d.Output())
	second := receive(t, d.Output())

	if first.Type != ChangeTypeBuildFile || !reflect.DeepEqual(first.Paths, []string{"build.gradle"}) {
		t.Errorf("first event = %+v, want build file batch", first)
	}
	if second.Type != ChangeTypeSource || !reflect.DeepEqual(second.Paths, []string{"A.java", "B.java"}) {
		t.Errorf("second event = %+v, want deduplicated source batch", second)
	}
}

func TestDebouncer_MaxWait(t *testing.T) {
	input := make(chan ChangeEvent)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := NewDebouncer(input, time.Hour, 50*time.Millisecond)
	d.Start(ctx)

	input <- ChangeEvent{Type: ChangeTypeSource, Paths: []string{"A.java"}}

	if got := receive(t, d.Output()); got.Type != ChangeTypeSource {
		t.Errorf("unexpected event %+v", got)
	}
}

func TestDebouncer_FlushesOnClose(t *testing.T) {
	input := make(chan ChangeEvent, 1)
	d := NewDebouncer(input, time.Hour, time.Hour)
	d.Start(context.Background())

	input <- ChangeEvent{Type: ChangeTypeBuildFile, Paths: []string{"pom.xml"}}
	close(input)

	if got := receive(t, d.Output()); got.Paths[0] != "pom.xml" {
		t.Errorf("unexpected event %+v", got)
	}
	if _, ok := <-d.Output(); ok {
		t.Error("output should be closed after input closes")
	}
}

func TestFileWatcher_DetectsSourceChange(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}

	fw, err := NewFileWatcher(root)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := fw.Start(ctx); err != nil {
		t.Fatal(err)
	}

	if err := os.WriteFile(filepath.Join(src, "Main.java"), []byte("class Main {}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	event := receive(t, fw.Events())
	if event.Type != ChangeTypeSource {
		t.Errorf("event type = %v, want source", event.Type)
	}
	for _, p := range event.Paths {
		if filepath.Base(p) != "Main.java" {
			t.Errorf("unexpected path %s", p)
		}
	}
}

func receive(t *testing.T, ch <-chan ChangeEvent) ChangeEvent {
	t.Helper()
	select {
	case event, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return event
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for event")
	}
	return ChangeEvent{}
}
