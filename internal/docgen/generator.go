package docgen

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"strings"
)

// ErrTemplate marks a malformed template; callers map it to a client error.
var ErrTemplate = errors.New("malformed document template")

// ErrValidation marks missing required structured fields.
var ErrValidation = errors.New("invalid document data")

// Renderer converts a rendered HTML document into PDF bytes. The production
// implementation lives in internal/pdf; tests substitute a fake.
type Renderer interface {
	RenderPDF(ctx context.Context, html string) ([]byte, error)
}

// Generator builds paginated documents from structured data and an HTML
// template. It holds no per-call state and is safe for concurrent use.
type Generator struct {
	renderer Renderer
}

// NewGenerator constructs a Generator around the given renderer.
func NewGenerator(renderer Renderer) *Generator {
	return &Generator{renderer: renderer}
}

// Generate renders data through tmplText and returns the PDF bytes. An empty
// tmplText selects the built-in template for the kind.
func (g *Generator) Generate(ctx context.Context, kind Kind, data DocumentData, tmplText string) ([]byte, error) {
	if err := validateData(data); err != nil {
		return nil, err
	}

	if tmplText == "" {
		switch kind {
		case KindResume:
			tmplText = ResumeTemplate
		case KindCoverLetter:
			tmplText = CoverLetterTemplate
		default:
			return nil, fmt.Errorf("%w: unknown document kind %q", ErrValidation, kind)
		}
	}

	tmpl, err := template.New(string(kind)).Parse(tmplText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplate, err)
	}

	pdfBytes, err := g.renderer.RenderPDF(ctx, buf.String())
	if err != nil {
		return nil, fmt.Errorf("render %s pdf: %w", kind, err)
	}

	return pdfBytes, nil
}

func validateData(data DocumentData) error {
	if strings.TrimSpace(data.Contact.Name) == "" {
		return fmt.Errorf("%w: contact name is required", ErrValidation)
	}
	if strings.TrimSpace(data.Contact.Email) == "" {
		return fmt.Errorf("%w: contact email is required", ErrValidation)
	}
	return nil
}

// SplitLines breaks free text into trimmed, non-empty lines. Achievement
// bullets are stored as a single newline-separated block.
func SplitLines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
