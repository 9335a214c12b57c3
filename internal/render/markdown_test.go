package render

import "testing"

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Just text.", "Just text."},
		{"headings", "# Title\n## Sub\nbody", "Title\nSub\nbody"},
		{"bold and italic", "**bold**, *italic*, __really strong__ and _em_.", "bold, italic, really strong and em."},
		{"adjacent emphasis", "*one* *two* **three** **four**", "one two three four"},
		{"emphasis at line edges", "**Key ideas:**\nuse *small* steps", "Key ideas:\nuse small steps"},
		{"inline code", "call `go test` now", "call go test now"},
		{"link", "See [the docs](https://go.dev/doc) today", "See the docs (https://go.dev/doc) today"},
		{"image", "![diagram](https://example.com/a.png)", "diagram (https://example.com/a.png)"},
		{"fences", "```go\nfmt.Println(1)\n```", "fmt.Println(1)"},
		{"arithmetic stars untouched", "2 * 3 * 4 = 24", "2 * 3 * 4 = 24"},
		{"snake case untouched", "URL: https://example.com/some_path_here", "URL: https://example.com/some_path_here"},
		{"multiplication", "Solve 2*x + 3*y = 12 for y.", "Solve 2*x + 3*y = 12 for y."},
		{"products", "Area = a*b and c*d", "Area = a*b and c*d"},
		{"dunder names", "Define __init__ and __str__ methods.", "Define __init__ and __str__ methods."},
		{"subscripts", "x_1 and y_2 are inputs", "x_1 and y_2 are inputs"},
		{"code span dunder", "call `__len__` here", "call __len__ here"},
		{"crlf", "a\r\nb", "a\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StripMarkdown(tt.in)
			if got != tt.want {
				t.Errorf("StripMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := StripMarkdown(got); again != got {
				t.Errorf("StripMarkdown is not idempotent: %q -> %q", got, again)
			}
		})
	}
}
