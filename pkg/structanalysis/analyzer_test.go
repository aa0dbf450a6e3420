package structanalysis

import (
	"errors"
	"testing"

	"github.com/ritzau/coco/pkg/ctags"
)

func TestAnalyzer_Name(t *testing.T) {
	tests := map[string]string{
		"java":                    "coco_struct_analysis/java",
		"workspace.source.kotlin": "coco_struct_analysis/kotlin",
	}
	for in, want := range tests {
		if got := New(in).Name(); got != want {
			t.Errorf("New(%q).Name() = %q, want %q", in, got, want)
		}
	}
}

func TestAnalyzer_Analyze(t *testing.T) {
	text := "A\tA.java\t1;\"\tclass\tlanguage:Java\n" +
		"B\tB.java\t1;\"\tclass\tlanguage:Java\tinherits:A\n" +
		"garbage\n"

	records, err := New("java").Analyze(text)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[1].Name != "B" || len(records[1].ParentNames) != 1 || records[1].ParentNames[0] != "A" {
		t.Errorf("unexpected record %+v", records[1])
	}
}

func TestAnalyzer_EmptyInput(t *testing.T) {
	records, err := New("java").Analyze("")
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}

func TestAnalyzer_AllMalformed(t *testing.T) {
	_, err := New("java").Analyze("not a tag file\nat all\n")
	if !errors.Is(err, ctags.ErrMalformedLine) {
		t.Errorf("Analyze() error = %v, want ErrMalformedLine", err)
	}
}

func TestAnalyzer_HeadersAndMalformedOnly(t *testing.T) {
	text := "!_TAG_FILE_FORMAT\t2\t/extended format/\n" +
		"!_TAG_PROGRAM_NAME\tUniversal Ctags\t//\n" +
		"\n" +
		"not a tag line\n"

	_, err := New("java").Analyze(text)
	if !errors.Is(err, ctags.ErrMalformedLine) {
		t.Errorf("Analyze() error = %v, want ErrMalformedLine", err)
	}
}

func TestAnalyzer_SkippedKindsCountAsParsed(t *testing.T) {
	text := "com.acme\tA.java\t1;\"\tpackage\tlanguage:Java\n" +
		"not a tag line\n"

	records, err := New("java").Analyze(text)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
}
