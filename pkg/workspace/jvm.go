package workspace

import "regexp"

// Compiled once; never mutated.
var (
	javaTestRe     = regexp.MustCompile(`(Test|Tests)\.java$`)
	javaSourceRe   = regexp.MustCompile(`\.java$`)
	groovySourceRe = regexp.MustCompile(`\.groovy$`)
	kotlinSourceRe = regexp.MustCompile(`\.kt$`)
	scalaSourceRe  = regexp.MustCompile(`\.scala$`)
)

// sourcePatterns pairs each language tag with its file pattern
var sourcePatterns = []struct {
	tag string
	re  *regexp.Regexp
}{
	{TagJava, javaSourceRe},
	{TagGroovy, groovySourceRe},
	{TagKotlin, kotlinSourceRe},
	{TagScala, scalaSourceRe},
}

// IsTest reports whether name follows the Java test naming convention
// (*Test.java or *Tests.java). Other languages are not considered.
func IsTest(name string) bool {
	return javaTestRe.MatchString(name)
}

func IsJavaSource(name string) bool {
	return javaSourceRe.MatchString(name)
}

func IsGroovySource(name string) bool {
	return groovySourceRe.MatchString(name)
}

func IsKotlinSource(name string) bool {
	return kotlinSourceRe.MatchString(name)
}

func IsScalaSource(name string) bool {
	return scalaSourceRe.MatchString(name)
}

// LanguageOf returns the source tag for a file name, or "" if it is not a JVM source
func LanguageOf(name string) string {
	for _, p := range sourcePatterns {
		if p.re.MatchString(name) {
			return p.tag
		}
	}
	return ""
}

// IsBuildFile reports whether name is a build descriptor that affects detection
func IsBuildFile(name string) bool {
	switch name {
	case "build.gradle", "settings.gradle", "pom.xml", "build.gradle.kts", "settings.gradle.kts":
		return true
	}
	return false
}

// Detect computes the tag set for a workspace from the base names of its files.
// Every known key is present in the result; keys default to false.
func Detect(names []string) Tags {
	tags := make(Tags, len(KnownTags))
	for _, k := range KnownTags {
		tags[k] = false
	}

	present := make(map[string]bool, len(names))
	for _, name := range names {
		present[name] = true
	}
	detectBuildTool(present, tags)
	detectSourceFiles(names, tags)

	return tags
}

func detectBuildTool(names map[string]bool, tags Tags) {
	tags[TagGradle] = names["build.gradle"]
	tags[TagGradleComposite] = names["build.gradle"] && names["settings.gradle"]
	tags[TagPom] = names["pom.xml"]
}

func detectSourceFiles(names []string, tags Tags) {
	for _, name := range names {
		if IsTest(name) {
			tags[TagTest] = true
		}
		for _, p := range sourcePatterns {
			if p.re.MatchString(name) {
				tags[p.tag] = true
			}
		}
	}
}
