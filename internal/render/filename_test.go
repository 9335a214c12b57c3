package render

import "testing"

func TestFilename(t *testing.T) {
	tests := []struct {
		course string
		day    int
		topic  string
		ext    string
		want   string
	}{
		{"Intro to Testing", 2, "Mocks and Stubs", "pdf", "Intro to Testing_Day2_Mocks_and_Stubs.pdf"},
		{"Go", 1, "Basics", ".xlsx", "Go_Day1_Basics.xlsx"},
		{"A/B: Testing", 3, "What? Why*", "pdf", "AB Testing_Day3_What_Why.pdf"},
		{"  Café ", 10, " Crème brûlée ", "pdf", "Café_Day10_Crème_brûlée.pdf"},
	}

	for _, tt := range tests {
		if got := Filename(tt.course, tt.day, tt.topic, tt.ext); got != tt.want {
			t.Errorf("Filename(%q, %d, %q) = %q, want %q", tt.course, tt.day, tt.topic, got, tt.want)
		}
	}
}

func TestASCIIFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Go_Day1_Basics.pdf", "Go_Day1_Basics.pdf"},
		{"Café_Day1_Crème.pdf", "Cafe_Day1_Creme.pdf"},
		{"日本_Day1.pdf", "__Day1.pdf"},
		{`say "hi".pdf`, "say _hi_.pdf"},
	}

	for _, tt := range tests {
		if got := ASCIIFilename(tt.in); got != tt.want {
			t.Errorf("ASCIIFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOutlineFilename(t *testing.T) {
	if got := OutlineFilename(" Intro to Testing ", "xlsx"); got != "Intro to Testing_Outline.xlsx" {
		t.Errorf("OutlineFilename() = %q", got)
	}
	if got := OutlineFilename("A/B", ".xlsx"); got != "AB_Outline.xlsx" {
		t.Errorf("OutlineFilename() = %q", got)
	}
}
