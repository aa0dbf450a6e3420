package plugin

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ritzau/coco/pkg/analysis/api"
	"github.com/ritzau/coco/pkg/model"
	"github.com/ritzau/coco/pkg/workspace"
)

// Test Plan for Registry:
// - Select keeps registration order and only present tags
// - Uncovered lists detected languages without a descriptor
// - A missing Kotlin artifact does not stop the Java plugin
// - Panics and ABI mismatches become per-plugin errors
// - Every loaded handle is closed
// - The fallback loader serves built-in analyzers
// - A caller timeout returns partial results
// - A caller timeout closes the handles of pending plugins before returning
// - Outcomes buffered when the context ends are still collected
// - Concurrency is bounded

type fakeAnalyzer struct {
	name    string
	records []model.RawClassRecord
	err     error
	panics  bool
}

func (a *fakeAnalyzer) Name() string { return a.name }

func (a *fakeAnalyzer) Analyze(tagFile string) ([]model.RawClassRecord, error) {
	if a.panics {
		panic("boom")
	}
	if a.err != nil {
		return nil, a.err
	}
	return a.records, nil
}

type countingHandle struct {
	analyzer api.Analyzer
	closed   *atomic.Int32
}

func (h *countingHandle) Analyzer() api.Analyzer { return h.analyzer }

func (h *countingHandle) Close() error {
	h.closed.Add(1)
	return nil
}

func javaOnlyTags() workspace.Tags {
	tags := workspace.Detect([]string{"Main.java", "build.gradle"})
	return tags
}

func javaKotlinTags() workspace.Tags {
	return workspace.Detect([]string{"Main.java", "Repo.kt"})
}

func staticSource(ctx context.Context, languageKey string) (string, error) {
	return "tags for " + languageKey, nil
}

func TestRegistry_Select(t *testing.T) {
	r := NewRegistry(NewStaticLoader(), DefaultDescriptors())

	tags := workspace.Detect([]string{"A.scala", "B.java", "C.kt"})
	selected := r.Select(tags)

	var bins []string
	for _, d := range selected {
		bins = append(bins, d.BinaryName)
	}
	assert.Equal(t, []string{"java", "kotlin", "scala"}, bins)
	assert.Empty(t, r.Select(workspace.Detect(nil)))
}

func TestRegistry_Uncovered(t *testing.T) {
	r := NewRegistry(NewStaticLoader(), []Descriptor{{LanguageKey: workspace.TagJava, BinaryName: "java"}})

	tags := workspace.Detect([]string{"A.java", "B.groovy", "CTest.java"})
	assert.Equal(t, []string{workspace.TagGroovy}, r.Uncovered(tags))
}

func TestRegistry_KotlinMissingJavaSucceeds(t *testing.T) {
	loader := NewStaticLoader()
	loader.Register("java", func() api.Analyzer {
		return &fakeAnalyzer{name: "java", records: []model.RawClassRecord{{Name: "Main", SourceFile: "Main.java"}}}
	})

	r := NewRegistry(loader, DefaultDescriptors())
	result := r.Run(context.Background(), javaKotlinTags(), TagSourceFunc(staticSource))

	require.Len(t, result.Batches, 1)
	assert.Equal(t, "java", result.Batches[0].PluginName)
	assert.Equal(t, "Main", result.Batches[0].Records[0].Name)

	require.Len(t, result.Errors, 1)
	perr := result.Errors[0]
	assert.Equal(t, workspace.TagKotlin, perr.Language)
	assert.ErrorIs(t, perr, ErrLoadFailed)
	assert.ErrorIs(t, perr, os.ErrNotExist)
	assert.Equal(t, r.ArtifactPath(Descriptor{BinaryName: "kotlin"}), perr.Path)
}

func TestRegistry_PanicIsIsolated(t *testing.T) {
	var closed atomic.Int32
	loader := LoaderFunc(func(path string) (Handle, error) {
		if path == ArtifactPath("target", BuildRelease, hostOS(), "kotlin") {
			return &countingHandle{analyzer: &fakeAnalyzer{name: "kotlin", panics: true}, closed: &closed}, nil
		}
		return &countingHandle{analyzer: &fakeAnalyzer{name: "java"}, closed: &closed}, nil
	})

	r := NewRegistry(loader, DefaultDescriptors())
	result := r.Run(context.Background(), javaKotlinTags(), TagSourceFunc(staticSource))

	require.Len(t, result.Batches, 1)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], ErrInvocationFailed)
	assert.Contains(t, result.Errors[0].Error(), "panicked")
	assert.Equal(t, int32(2), closed.Load(), "every handle must be closed")
}

func TestRegistry_AnalyzeError(t *testing.T) {
	cause := errors.New("bad input")
	var closed atomic.Int32
	loader := LoaderFunc(func(path string) (Handle, error) {
		return &countingHandle{analyzer: &fakeAnalyzer{name: "java", err: cause}, closed: &closed}, nil
	})

	r := NewRegistry(loader, DefaultDescriptors())
	result := r.Run(context.Background(), javaOnlyTags(), TagSourceFunc(staticSource))

	assert.Empty(t, result.Batches)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], ErrInvocationFailed)
	assert.ErrorIs(t, result.Errors[0], cause)
	assert.Equal(t, int32(1), closed.Load())
}

func TestRegistry_TagSourceError(t *testing.T) {
	var closed atomic.Int32
	loader := LoaderFunc(func(path string) (Handle, error) {
		return &countingHandle{analyzer: &fakeAnalyzer{name: "java"}, closed: &closed}, nil
	})
	src := TagSourceFunc(func(ctx context.Context, languageKey string) (string, error) {
		return "", errors.New("ctags not installed")
	})

	result := NewRegistry(loader, DefaultDescriptors()).Run(context.Background(), javaOnlyTags(), src)

	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], ErrInvocationFailed)
	assert.Equal(t, int32(1), closed.Load())
}

func TestRegistry_ABIMismatch(t *testing.T) {
	loader := LoaderFunc(func(path string) (Handle, error) {
		return nil, fmt.Errorf("%w: plugin version 2, host version 1", ErrABIMismatch)
	})

	result := NewRegistry(loader, DefaultDescriptors()).Run(context.Background(), javaOnlyTags(), TagSourceFunc(staticSource))

	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], ErrLoadFailed)
	assert.ErrorIs(t, result.Errors[0], ErrABIMismatch)
}

func TestRegistry_NilAnalyzer(t *testing.T) {
	var closed atomic.Int32
	loader := LoaderFunc(func(path string) (Handle, error) {
		return &countingHandle{closed: &closed}, nil
	})

	result := NewRegistry(loader, DefaultDescriptors()).Run(context.Background(), javaOnlyTags(), TagSourceFunc(staticSource))

	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], ErrLoadFailed)
	assert.Equal(t, int32(1), closed.Load())
}

func TestRegistry_Fallback(t *testing.T) {
	builtin := NewStaticLoader()
	builtin.Register("java", func() api.Analyzer { return &fakeAnalyzer{name: "builtin/java"} })

	r := NewRegistry(NewNativeLoader(), DefaultDescriptors(),
		WithDir(t.TempDir()), WithBuildType(BuildDebug), WithFallback(builtin))
	result := r.Run(context.Background(), javaOnlyTags(), TagSourceFunc(staticSource))

	require.Empty(t, result.Errors)
	require.Len(t, result.Batches, 1)
	assert.Equal(t, "builtin/java", result.Batches[0].PluginName)
}

type stubLinkChecker struct{ missing []string }

func (s stubLinkChecker) Missing(path string) ([]string, error) { return s.missing, nil }

func TestRegistry_LinkChecker(t *testing.T) {
	loader := LoaderFunc(func(path string) (Handle, error) {
		return nil, errors.New("plugin.Open: cannot open shared object")
	})

	r := NewRegistry(loader, DefaultDescriptors(), WithLinkChecker(stubLinkChecker{missing: []string{"libjni.so"}}))
	result := r.Run(context.Background(), javaOnlyTags(), TagSourceFunc(staticSource))

	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0].Error(), "missing libraries: libjni.so")
}

func TestRegistry_TimeoutReturnsPartialResults(t *testing.T) {
	loader := NewStaticLoader()
	loader.Register("java", func() api.Analyzer { return &fakeAnalyzer{name: "java"} })
	loader.Register("kotlin", func() api.Analyzer { return &fakeAnalyzer{name: "kotlin"} })

	release := make(chan struct{})
	defer close(release)
	src := TagSourceFunc(func(ctx context.Context, languageKey string) (string, error) {
		if languageKey == workspace.TagKotlin {
			<-release
		}
		return "", nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	result := NewRegistry(loader, DefaultDescriptors()).Run(ctx, javaKotlinTags(), src)

	assert.Less(t, time.Since(start), 5*time.Second)
	require.Len(t, result.Batches, 1)
	assert.Equal(t, "java", result.Batches[0].PluginName)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, workspace.TagKotlin, result.Errors[0].Language)
	assert.ErrorIs(t, result.Errors[0], context.DeadlineExceeded)
}

func TestRegistry_ConcurrencyBound(t *testing.T) {
	var running, peak atomic.Int32
	var mu sync.Mutex
	var order []string

	loader := LoaderFunc(func(path string) (Handle, error) {
		return &staticHandle{factory: func() api.Analyzer { return &fakeAnalyzer{name: path} }}, nil
	})
	src := TagSourceFunc(func(ctx context.Context, languageKey string) (string, error) {
		n := running.Add(1)
		defer running.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		mu.Lock()
		order = append(order, languageKey)
		mu.Unlock()
		return "", nil
	})

	tags := workspace.Detect([]string{"A.java", "B.groovy", "C.kt", "D.scala"})
	result := NewRegistry(loader, DefaultDescriptors(), WithConcurrency(1)).Run(context.Background(), tags, src)

	assert.Len(t, result.Batches, 4)
	assert.Len(t, order, 4)
	assert.Equal(t, int32(1), peak.Load())

	// Batches come back in selection order regardless of completion order
	var keys []string
	for _, b := range result.Batches {
		keys = append(keys, b.Descriptor.LanguageKey)
	}
	assert.Equal(t, []string{workspace.TagJava, workspace.TagGroovy, workspace.TagKotlin, workspace.TagScala}, keys)
	assert.Len(t, result.Records(), 4)
}

func TestRegistry_NothingSelected(t *testing.T) {
	result := NewRegistry(NewStaticLoader(), DefaultDescriptors()).Run(context.Background(), workspace.Detect([]string{"pom.xml"}), TagSourceFunc(staticSource))
	assert.Empty(t, result.Batches)
	assert.Empty(t, result.Errors)
}

func TestRegistry_TimeoutClosesPendingHandles(t *testing.T) {
	var javaClosed, kotlinClosed atomic.Int32
	kotlinPath := ArtifactPath("target", BuildRelease, hostOS(), "kotlin")
	loader := LoaderFunc(func(path string) (Handle, error) {
		if path == kotlinPath {
			return &countingHandle{analyzer: &fakeAnalyzer{name: "kotlin"}, closed: &kotlinClosed}, nil
		}
		return &countingHandle{analyzer: &fakeAnalyzer{name: "java"}, closed: &javaClosed}, nil
	})

	release := make(chan struct{})
	src := TagSourceFunc(func(ctx context.Context, languageKey string) (string, error) {
		if languageKey == workspace.TagKotlin {
			<-release
		}
		return "", nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	result := NewRegistry(loader, DefaultDescriptors()).Run(ctx, javaKotlinTags(), src)
	require.Len(t, result.Batches, 1)
	require.Len(t, result.Errors, 1)

	assert.Equal(t, int32(1), javaClosed.Load())
	assert.Equal(t, int32(1), kotlinClosed.Load(), "pending handle must be closed when Run returns")

	// The late worker must not close the handle a second time
	close(release)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), kotlinClosed.Load())
}

func TestCollect_KeepsBufferedOutcomesAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Both the context and a finished outcome are ready; the outcome must
	// win no matter which case select picks
	for i := 0; i < 50; i++ {
		outcomes := make(chan outcome, 2)
		outcomes <- outcome{index: 0, batch: &Batch{PluginName: "java"}}

		received, pending := collect(ctx, outcomes, 2)
		require.Equal(t, 1, pending)
		require.NotNil(t, received[0])
		assert.Equal(t, "java", received[0].batch.PluginName)
		assert.Nil(t, received[1])
	}
}
