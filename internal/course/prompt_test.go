package course_test

import (
	"strings"
	"testing"

	"github.com/p-n-ai/educonnect/internal/course"
)

func TestBuildPrompt(t *testing.T) {
	prompt := course.BuildPrompt("Intro to Testing", "unit tests, mocks", 2)

	wants := []string{
		`"Intro to Testing"`,
		"unit tests, mocks",
		"exactly 2 modules",
		"exactly 2 topics",
		"at least 400 words",
		"exactly 3 practice questions",
		"exactly 3 learning resources",
		`"youtube"`,
		`"practiceQuestions"`,
		"single well-formed JSON object",
		"Do not use markdown",
	}
	for _, want := range wants {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildPrompt_IsPure(t *testing.T) {
	a := course.BuildPrompt("Go", "goroutines", 3)
	b := course.BuildPrompt("Go", "goroutines", 3)
	if a != b {
		t.Error("BuildPrompt() should be deterministic")
	}
}

func TestBuildPrompt_ClampsDuration(t *testing.T) {
	for _, days := range []int{0, -4} {
		prompt := course.BuildPrompt("Go", "basics", days)
		if !strings.Contains(prompt, "exactly 1 modules") {
			t.Errorf("BuildPrompt(days=%d) should request a single module", days)
		}
	}
}
