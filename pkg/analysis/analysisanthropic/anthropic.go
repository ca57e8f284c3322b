// Package analysisanthropic implements analysis.Analyzer with the Anthropic
// Messages API. PDFs are sent as document blocks; other files as text.
package analysisanthropic

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"strings"

	"github.com/Abraxas-365/docqueue/pkg/analysis"
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	DefaultModel     = "claude-sonnet-4-20250514"
	DefaultMaxTokens = 4096
)

const systemPrompt = `You review blood test reports as a panel of four specialists: a medical laboratory analyst, a document verification specialist, a clinical nutritionist and an exercise physiologist.
First confirm the document is a blood test report. Then interpret every marker against its reference range, quoting values with their units (for example "Glucose: 95 mg/dL").
Give evidence-based nutrition and exercise guidance tied to the findings.
Close with a reminder that the analysis is educational and that medical decisions belong with a qualified healthcare professional.`

// Analyzer calls Claude for each document.
type Analyzer struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

// Option configures an Analyzer.
type Option func(*Analyzer)

func WithModel(model string) Option {
	return func(a *Analyzer) {
		if model != "" {
			a.model = model
		}
	}
}

func WithMaxTokens(n int64) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// New creates an Analyzer. An empty apiKey falls back to ANTHROPIC_API_KEY.
// requestOpts are passed to the SDK client, e.g. option.WithBaseURL.
func New(apiKey string, opts []Option, requestOpts ...option.RequestOption) (*Analyzer, error) {
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, errorRegistry.New(ErrMissingAPIKey)
	}

	a := &Analyzer{
		client:    anthropic.NewClient(append([]option.RequestOption{option.WithAPIKey(apiKey)}, requestOpts...)...),
		model:     DefaultModel,
		maxTokens: DefaultMaxTokens,
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

func (a *Analyzer) Analyze(ctx context.Context, doc analysis.Document, query string) (string, error) {
	var blocks []anthropic.ContentBlockParamUnion
	if doc.ContentType == "application/pdf" {
		blocks = append(blocks, anthropic.NewDocumentBlock(anthropic.Base64PDFSourceParam{
			Data: base64.StdEncoding.EncodeToString(doc.Data),
		}))
	} else {
		blocks = append(blocks, anthropic.NewTextBlock(fmt.Sprintf("Report file %q:\n\n%s", doc.Filename, doc.Data)))
	}
	blocks = append(blocks, anthropic.NewTextBlock(query))

	msg, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(blocks...)},
	})
	if err != nil {
		return "", analysis.AnalyzerFailed(parseError(err).WithDetail("model", a.model))
	}

	var text strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

var _ analysis.Analyzer = (*Analyzer)(nil)
