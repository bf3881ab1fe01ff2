package diagrams

import (
	"errors"
	"strings"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"mermaid fence", "Here you go:\n```mermaid\ngraph TD\nA-->B\n```\nEnjoy", "graph TD\nA-->B"},
		{"unterminated mermaid fence", "```mermaid\ngraph TD\nA-->B", "graph TD\nA-->B"},
		{"generic fence", "```\ngraph LR\nX-->Y\n```", "graph LR\nX-->Y"},
		{"plain reply", "  graph TD\nA-->B  \n", "graph TD\nA-->B"},
	}
	for _, tt := range tests {
		if got := Extract(tt.reply); got != tt.want {
			t.Errorf("%s: Extract = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestStripInlineStyles(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"A[Start fill:#fff]", "A[Start ]"},
		{"A[fill:#fff,stroke:#333]", "A"},
		{"A[stroke-width:2px]", "A"},
		{"A[Plain label] --> B[Other]", "A[Plain label] --> B[Other]"},
		{"A[]", "A"},
	}
	for _, tt := range tests {
		if got := StripInlineStyles(tt.in); got != tt.want {
			t.Errorf("StripInlineStyles(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIsValid(t *testing.T) {
	valid := []string{
		"graph TD\nA-->B",
		"  flowchart LR",
		"%% comment\nsequenceDiagram\nA->>B: hi",
		"classDiagram\nclass Animal",
		"pie title Pets",
		"mindmap\n  root",
	}
	for _, s := range valid {
		if !IsValid(s) {
			t.Errorf("expected %q to be valid", s)
		}
	}
	for _, s := range []string{"", "hello world", "A-->B"} {
		if IsValid(s) {
			t.Errorf("expected %q to be invalid", s)
		}
	}
}

func TestSanitizeFirstGeneration(t *testing.T) {
	got, err := Sanitize("```mermaid\ngraph TD\nA-->B\n```", "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "graph TD\nA-->B" {
		t.Errorf("got %q", got)
	}
}

func TestSanitizeStripsStylesOnlyForPlainRequests(t *testing.T) {
	reply := "graph TD\nA[Start fill:#f00] --> B"

	plain, err := Sanitize(reply, "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(plain, "fill:") {
		t.Errorf("expected inline style stripped, got %q", plain)
	}

	styled, err := Sanitize(reply, "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(styled, "fill:#f00") {
		t.Errorf("expected inline style kept for style request, got %q", styled)
	}
}

func TestSanitizeNoChanges(t *testing.T) {
	prior := "graph TD\n  A-->B"
	_, err := Sanitize("```mermaid\ngraph TD\nA-->B\n```", prior, false)
	if !errors.Is(err, ErrNoChanges) {
		t.Fatalf("expected ErrNoChanges, got %v", err)
	}
}

func TestSanitizeStyleOnlyGetsGraphDeclaration(t *testing.T) {
	got, err := Sanitize("classDef a fill:#0f0", "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "graph TD\nclassDef a fill:#0f0" {
		t.Errorf("got %q", got)
	}

	got, err = Sanitize("style A fill:#f9f", "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(got, "graph TD\n") {
		t.Errorf("expected graph TD prefix, got %q", got)
	}
}

func TestSanitizeKeepsDeclaredDiagramTypes(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  string
	}{
		{"class diagram", "```mermaid\nclassDiagram\nclass Animal\nAnimal <|-- Duck\n```", "classDiagram\nclass Animal\nAnimal <|-- Duck"},
		{"state diagram", "stateDiagram-v2\n[*] --> Idle\nstyle Idle fill:#f9f", "stateDiagram-v2\n[*] --> Idle\nstyle Idle fill:#f9f"},
		{"flowchart", "flowchart LR\nA-->B\nclassDef hot fill:#f00", "flowchart LR\nA-->B\nclassDef hot fill:#f00"},
	}
	for _, tt := range tests {
		got, err := Sanitize(tt.reply, "", true)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestSanitizeStyleRequestFallsBackToPrior(t *testing.T) {
	prior := "graph TD\nA-->B"
	got, err := Sanitize("A:::green", prior, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != prior+"\nA:::green" {
		t.Errorf("got %q", got)
	}
}

func TestSanitizeInvalid(t *testing.T) {
	if _, err := Sanitize("I cannot draw that.", "", false); !errors.Is(err, ErrInvalidDiagram) {
		t.Errorf("expected ErrInvalidDiagram, got %v", err)
	}
	// Without a prior diagram the style fallback has nothing to join.
	if _, err := Sanitize("A:::green", "", true); !errors.Is(err, ErrInvalidDiagram) {
		t.Errorf("expected ErrInvalidDiagram, got %v", err)
	}
}

func TestEquivalent(t *testing.T) {
	if !Equivalent("graph TD\n\tA-->B\n", "graph TD A-->B") {
		t.Error("expected whitespace-only difference to be equivalent")
	}
	if Equivalent("graph TD A-->B", "graph TD A-->C") {
		t.Error("expected different diagrams to differ")
	}
}

func TestNormalizeForRender(t *testing.T) {
	in := "%%{init: {'flowchart': {'curve': 'basis'}}}%%\ngraph TD\nlinkStyle default interpolate curve=basis\nclassDef a fill:#0f0"
	got := NormalizeForRender(in)
	if strings.Contains(got, "curve=basis") {
		t.Errorf("expected curve=basis rewritten, got %q", got)
	}
	if !strings.Contains(got, "classDef a fill:#0f0") {
		t.Error("style directives must be kept")
	}
}

func TestReduce(t *testing.T) {
	in := strings.Join([]string{
		"graph TD",
		"  A[Start fill:#fff] --> B",
		"  %% a comment",
		"  click A callback",
		"  classDef hot fill:#f00",
		"  class A hot",
		"  style B stroke:#333",
		"  :::broken",
	}, "\n")

	got := Reduce(in)
	for _, want := range []string{"graph TD", "A[Start ] --> B", "classDef hot", "class A hot", "style B"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q kept in:\n%s", want, got)
		}
	}
	for _, gone := range []string{"%% a comment", ":::broken"} {
		if strings.Contains(got, gone) {
			t.Errorf("expected %q dropped from:\n%s", gone, got)
		}
	}
}

func TestReduceLeavesOtherDiagramTypes(t *testing.T) {
	in := "sequenceDiagram\n%% note\nA->>B: hi"
	if got := Reduce(in); got != in {
		t.Errorf("expected non-graph diagram unchanged, got %q", got)
	}
}

func TestOutline(t *testing.T) {
	got := Outline("Guide (v2)", []string{"Intro", "Set-up steps"})

	if !strings.HasPrefix(got, "graph TD\n") {
		t.Fatalf("expected graph TD header, got %q", got)
	}
	if !strings.Contains(got, `doc_Guide__v2_["Guide #lpar;v2#rpar;"]`) {
		t.Errorf("expected escaped root node, got:\n%s", got)
	}
	if !strings.Contains(got, "doc_Guide__v2_ --> s1_Set_up_steps") {
		t.Errorf("expected edge to second section, got:\n%s", got)
	}
	if !IsValid(got) {
		t.Error("outline must be a valid diagram")
	}
}

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"main.go", "main_go"},
		{"src/auth/handler.go", "src_auth_handler_go"},
		{"my-pkg", "my_pkg"},
	}
	for _, tt := range tests {
		got := sanitizeID(tt.input)
		if got != tt.want {
			t.Errorf("sanitizeID(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEscapeMermaid(t *testing.T) {
	got := escapeMermaid(`say "hello"`)
	if !strings.Contains(got, "#quot;") {
		t.Errorf("expected escaped quotes, got: %s", got)
	}

	got = escapeMermaid("map[string]bool")
	if strings.Contains(got, "[") || strings.Contains(got, "]") {
		t.Errorf("expected escaped brackets, got: %s", got)
	}
}
