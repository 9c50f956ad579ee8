package prompt

import (
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"avvai/internal/constants"
	"avvai/internal/utils"
)

//go:embed assets/prompt.txt
var defaultTemplate string

var ErrInvalidTemplate = errors.New("invalid prompt template")

// Composer renders the grandmother prompt. Compose never touches the disk.
type Composer struct {
	tmpl *template.Template
}

type promptData struct {
	Question string
	Context  string
}

func NewComposer() *Composer {
	return &Composer{tmpl: template.Must(parse(defaultTemplate))}
}

// NewComposerFromFile loads an override template. An empty path gives the built-in one.
func NewComposerFromFile(path string) (*Composer, error) {
	if path == "" {
		return NewComposer(), nil
	}
	text, err := utils.ReadTextFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}
	return NewComposerFromText(text)
}

func NewComposerFromText(text string) (*Composer, error) {
	tmpl, err := parse(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	c := &Composer{tmpl: tmpl}

	// both placeholders must survive into the output
	probe, err := c.render("\x00question\x00", "\x00context\x00")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTemplate, err)
	}
	if !strings.Contains(probe, "\x00question\x00") || !strings.Contains(probe, "\x00context\x00") {
		return nil, fmt.Errorf("%w: must use {{.Question}} and {{.Context}}", ErrInvalidTemplate)
	}
	return c, nil
}

// Compose - The retrieved verses become the context block, in retrieval order.
func (c *Composer) Compose(verses []constants.VerseEmbeddingResponse, question string) (string, error) {
	return c.render(question, BuildContext(verses))
}

func BuildContext(verses []constants.VerseEmbeddingResponse) string {
	texts := make([]string, len(verses))
	for i, v := range verses {
		texts[i] = v.EmbeddingText
	}
	return strings.Join(texts, "\n\n")
}

func (c *Composer) render(question, context string) (string, error) {
	var sb strings.Builder
	if err := c.tmpl.Execute(&sb, promptData{Question: question, Context: context}); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func parse(text string) (*template.Template, error) {
	return template.New("prompt").Option("missingkey=error").Parse(text)
}
