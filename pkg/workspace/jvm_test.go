package workspace

import (
	"reflect"
	"testing"
)

func TestIsTest(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Hello.java", false},
		{"HelloWorldTest.java", true},
		{"HelloTests.java", true},
		{"Hello.kt", false},
		{"HelloTest.kt", false},
		{"HelloTest.groovy", false},
		{"Hellotest.java", false},
		{"HelloTest.java.orig", false},
	}

	for _, tt := range tests {
		if got := IsTest(tt.name); got != tt.want {
			t.Errorf("IsTest(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestSourcePredicates(t *testing.T) {
	tests := []struct {
		name string
		fn   func(string) bool
		in   string
		want bool
	}{
		{"java", IsJavaSource, "Hello.java", true},
		{"java test", IsJavaSource, "HelloWorldTest.java", true},
		{"java not kotlin", IsJavaSource, "Hello.kt", false},
		{"groovy", IsGroovySource, "Hello.groovy", true},
		{"groovy test", IsGroovySource, "HelloTest.groovy", true},
		{"kotlin", IsKotlinSource, "Hello.kt", true},
		{"kotlin test", IsKotlinSource, "HelloTest.kt", true},
		{"kotlin script", IsKotlinSource, "build.gradle.kts", false},
		{"scala", IsScalaSource, "Hello.scala", true},
		{"scala test", IsScalaSource, "HelloTest.scala", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.in); got != tt.want {
				t.Errorf("%s(%q) = %v, want %v", tt.name, tt.in, got, tt.want)
			}
		})
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name   string
		files  []string
		active []string
	}{
		{
			name:   "Empty",
			files:  nil,
			active: nil,
		},
		{
			name:   "Gradle Composite",
			files:  []string{"build.gradle", "settings.gradle"},
			active: []string{TagGradle, TagGradleComposite},
		},
		{
			name:   "Gradle Without Settings",
			files:  []string{"build.gradle"},
			active: []string{TagGradle},
		},
		{
			name:   "Settings Alone Is Not A Build",
			files:  []string{"settings.gradle"},
			active: nil,
		},
		{
			name:   "Maven Java With Tests",
			files:  []string{"pom.xml", "App.java", "AppTest.java"},
			active: []string{TagPom, TagJava, TagTest},
		},
		{
			name:   "Kotlin Test Does Not Set Test Tag",
			files:  []string{"AppTest.kt"},
			active: []string{TagKotlin},
		},
		{
			name:   "Polyglot",
			files:  []string{"A.java", "B.groovy", "C.kt", "D.scala", "README.md"},
			active: []string{TagGroovy, TagJava, TagKotlin, TagScala},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags := Detect(tt.files)

			if !reflect.DeepEqual(tags.Keys(), KnownTags) {
				t.Errorf("Keys() = %v, want %v", tags.Keys(), KnownTags)
			}
			if got := tags.Active(); !reflect.DeepEqual(got, tt.active) {
				t.Errorf("Active() = %v, want %v", got, tt.active)
			}
			if err := tags.Validate(); err != nil {
				t.Errorf("Validate() error = %v", err)
			}
		})
	}
}

func TestDetect_GradleWithoutPom(t *testing.T) {
	tags := Detect([]string{"build.gradle", "settings.gradle", "Main.java"})

	if !tags.Has(TagGradle) || !tags.Has(TagGradleComposite) {
		t.Errorf("expected gradle and gradle.composite, got %v", tags.Active())
	}
	if v, ok := tags[TagPom]; !ok || v {
		t.Errorf("expected %s present and false, got present=%v value=%v", TagPom, ok, v)
	}
}

func TestDetect_Deterministic(t *testing.T) {
	a := Detect([]string{"Z.scala", "A.java", "build.gradle"})
	b := Detect([]string{"build.gradle", "A.java", "Z.scala"})

	if !reflect.DeepEqual(a, b) {
		t.Errorf("Detect is order dependent: %v vs %v", a, b)
	}
}

func TestTagsValidate(t *testing.T) {
	tags := Tags{TagGradleComposite: true, TagGradle: false}
	if err := tags.Validate(); err == nil {
		t.Error("expected error for composite without constituent")
	}
}

func TestLanguageOf(t *testing.T) {
	tests := map[string]string{
		"A.java":       TagJava,
		"B.groovy":     TagGroovy,
		"C.kt":         TagKotlin,
		"D.scala":      TagScala,
		"pom.xml":      "",
		"build.gradle": "",
	}
	for in, want := range tests {
		if got := LanguageOf(in); got != want {
			t.Errorf("LanguageOf(%q) = %q, want %q", in, got, want)
		}
	}
}
