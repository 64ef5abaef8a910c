// Package generation turns documents and quiz results into validated
// structured payloads through an LLM provider.
package generation

import (
	"context"
	"errors"
	"fmt"

	"github.com/abhisek/docquiz/internal/llm"
	"github.com/abhisek/docquiz/internal/quiz"
	"github.com/abhisek/docquiz/internal/schema"
	"github.com/abhisek/docquiz/internal/scoring"
)

// Generator produces validated quiz content and analysis reports.
type Generator interface {
	GenerateQuiz(ctx context.Context, in QuizInput) (*quiz.QuestionSet, error)
	GenerateAnalysis(ctx context.Context, in AnalysisInput) (*quiz.AnalysisReport, error)
}

// QuizInput is the source material for a question set.
type QuizInput struct {
	Document   []byte
	MIMEType   string // defaults to application/pdf
	Difficulty quiz.Difficulty
}

// AnalysisInput is a scored attempt to be reviewed.
type AnalysisInput struct {
	QuestionSet *quiz.QuestionSet
	Answers     quiz.AnswerTrace
	Summary     scoring.Summary
	Records     []quiz.QuestionRecord
}

// Client is the single-shot Generator. It never retries; wrap it with
// WithRetry for that.
type Client struct {
	provider llm.Provider
	cfg      llm.Config
	cfgErr   error
}

// New returns a Client. A configuration problem is not reported here but
// on every call, so hosting layers can start without credentials.
func New(cfg llm.Config, provider llm.Provider) *Client {
	c := &Client{provider: provider, cfg: cfg}
	if err := cfg.Validate(); err != nil {
		c.cfgErr = err
	} else if provider == nil {
		c.cfgErr = errors.New("no LLM provider")
	}
	return c
}

// GenerateQuiz asks the model for a question set grounded in the document.
func (c *Client) GenerateQuiz(ctx context.Context, in QuizInput) (*quiz.QuestionSet, error) {
	if c.cfgErr != nil {
		return nil, configurationError(KindQuestionSet, c.cfgErr)
	}
	if !in.Difficulty.Valid() {
		return nil, configurationError(KindQuestionSet, fmt.Errorf("unknown difficulty %q", in.Difficulty))
	}
	if len(in.Document) == 0 {
		return nil, configurationError(KindQuestionSet, errors.New("empty document"))
	}
	if !c.cfg.AcceptsDocuments() {
		return nil, configurationError(KindQuestionSet, fmt.Errorf("provider %q cannot read documents", c.cfg.Provider))
	}

	mime := in.MIMEType
	if mime == "" {
		mime = llm.MIMETypePDF
	}

	req := llm.Request{
		System: quizSystemPrompt,
		Messages: []llm.Message{{
			Role:        llm.RoleUser,
			Content:     buildQuizMessage(in.Difficulty),
			Attachments: []llm.Attachment{{MIMEType: mime, Data: in.Document}},
		}},
		Schema:      providerSchema(schema.QuestionSetShape),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: 0.7,
	}

	raw, err := c.call(ctx, llm.PurposeQuiz, KindQuestionSet, req)
	if err != nil {
		return nil, err
	}

	qs, err := schema.DecodeQuestionSet(raw)
	if err != nil {
		return nil, &Error{Kind: KindQuestionSet, Code: CodeMalformedOutput, Raw: raw, Err: err}
	}
	qs.Difficulty = in.Difficulty
	return qs, nil
}

// GenerateAnalysis asks the model for a remediation report.
func (c *Client) GenerateAnalysis(ctx context.Context, in AnalysisInput) (*quiz.AnalysisReport, error) {
	if c.cfgErr != nil {
		return nil, configurationError(KindAnalysisReport, c.cfgErr)
	}

	msg, err := buildAnalysisMessage(in)
	if err != nil {
		return nil, configurationError(KindAnalysisReport, err)
	}

	req := llm.Request{
		System:      analysisSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: msg}},
		Schema:      providerSchema(schema.AnalysisReportShape),
		MaxTokens:   c.cfg.MaxTokens,
		Temperature: 0.4,
	}

	raw, err := c.call(ctx, llm.PurposeAnalysis, KindAnalysisReport, req)
	if err != nil {
		return nil, err
	}

	report, err := schema.DecodeAnalysisReport(raw)
	if err != nil {
		return nil, &Error{Kind: KindAnalysisReport, Code: CodeMalformedOutput, Raw: raw, Err: err}
	}
	return report, nil
}

// call makes exactly one provider round trip and classifies its failure.
func (c *Client) call(ctx context.Context, purpose string, kind Kind, req llm.Request) ([]byte, error) {
	parent := ctx
	ctx = llm.WithPurpose(ctx, purpose)
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resp, err := c.provider.Generate(ctx, req)
	if err != nil {
		return nil, classify(parent, kind, err)
	}
	return resp.Content, nil
}

// classify maps provider errors onto the generation taxonomy. When the
// caller's context has ended the error is returned unchanged; a timeout of
// our own counts as the service being unavailable.
func classify(parent context.Context, kind Kind, err error) error {
	if parent.Err() != nil || errors.Is(err, context.Canceled) {
		return err
	}

	var (
		auth  *llm.ErrAuth
		unsup *llm.ErrUnsupportedAttachment
	)
	if errors.As(err, &auth) || errors.As(err, &unsup) {
		return configurationError(kind, err)
	}
	return &Error{Kind: kind, Code: CodeServiceUnavailable, Err: err}
}

func providerSchema(s *schema.Shape) *llm.Schema {
	return &llm.Schema{
		Name:        s.Name,
		Description: s.Description,
		Definition:  s.Hint(),
	}
}
