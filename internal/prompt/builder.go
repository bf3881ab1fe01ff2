package prompt

import (
	"fmt"
	"strings"
)

// DefaultInstruction is used when a first generation has no instruction.
const DefaultInstruction = "Create a clear and concise hierarchical diagram."

// Input describes one diagram request.
type Input struct {
	Content      string
	PriorDiagram string
	Instruction  string
}

// Prompt is the pair of instructions for the completion API.
type Prompt struct {
	System      string
	User        string
	StyleChange bool
}

// Builder turns an Input into a Prompt.
type Builder struct {
	detector *StyleDetector
}

// NewBuilder creates a Builder. A nil detector uses the default keywords.
func NewBuilder(detector *StyleDetector) *Builder {
	if detector == nil {
		detector = NewStyleDetector(nil)
	}
	return &Builder{detector: detector}
}

// Build produces the system and user instructions for in.
func (b *Builder) Build(in Input) Prompt {
	style := b.detector.IsStyleChange(in.Instruction)
	return Prompt{
		System:      systemPrompt(style),
		User:        userPrompt(in),
		StyleChange: style,
	}
}

func userPrompt(in Input) string {
	if strings.TrimSpace(in.PriorDiagram) != "" {
		return fmt.Sprintf("Current diagram:\n%s\n\nApply only these specific changes:\n%s",
			in.PriorDiagram, in.Instruction)
	}

	instruction := in.Instruction
	if strings.TrimSpace(instruction) == "" {
		instruction = DefaultInstruction
	}
	return fmt.Sprintf("Generate a Mermaid diagram to represent this information:\n%s\n\nAdditional instructions:\n%s",
		in.Content, instruction)
}

func systemPrompt(style bool) string {
	var b strings.Builder
	b.WriteString(`You are an expert at generating and modifying Mermaid diagrams.
When asked to modify an existing diagram:
1. Carefully analyze the current diagram and the requested changes
2. Apply ONLY the requested changes
3. Keep the structure and every element not mentioned in the instructions
4. Make sure the resulting diagram is valid
5. If the instructions ask for a horizontal diagram, use 'graph LR' instead of 'graph TD'
`)
	if style {
		b.WriteString("6. For color changes, use classDef and class to define styles and apply them to nodes\n")
	}

	b.WriteString("\nGeneral rules:\n- Use correct Mermaid syntax\n- Keep the diagram clean and readable\n")
	if style {
		b.WriteString(`- For color changes:
  * Use classDef to define style classes (e.g. classDef green fill:#90EE90)
  * Apply classes to nodes with class (e.g. class A,B green)
  * You may also use style for individual nodes (e.g. style A fill:#f9f,stroke:#333,stroke-width:4px)
  * Make sure the diagram starts with graph TD or graph LR before any styling
`)
	} else {
		b.WriteString("- Do NOT add style attributes such as fill:#fff, stroke:#333 or stroke-width to nodes\n")
	}
	b.WriteString(`- Avoid linkStyle whenever possible
- Do not add comments or explanations, only the Mermaid code
- Make sure every node and connection is valid
- To define a node with text, use the ID[Text] syntax without extra styling`)

	return b.String()
}
