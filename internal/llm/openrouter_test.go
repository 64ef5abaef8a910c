package llm

import (
	"context"
	"errors"
	"testing"
)

func TestNewOpenRouterProvider(t *testing.T) {
	tests := []struct {
		name      string
		cfg       OpenRouterConfig
		wantModel string
		wantErr   bool
	}{
		{"routed model kept verbatim", OpenRouterConfig{APIKey: "sk-or-test", Model: "anthropic/claude-3.5-haiku"}, "anthropic/claude-3.5-haiku", false},
		{"empty model uses default", OpenRouterConfig{APIKey: "sk-or-test"}, defaultOpenRouterModel, false},
		{"custom base URL", OpenRouterConfig{APIKey: "sk-or-test", Model: "openai/gpt-4o-mini", BaseURL: "http://localhost:9999/v1"}, "openai/gpt-4o-mini", false},
		{"missing key", OpenRouterConfig{Model: "openai/gpt-4o-mini"}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := NewOpenRouterProvider(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := p.ModelID(); got != tt.wantModel {
				t.Errorf("model = %q, want %q", got, tt.wantModel)
			}
			if p.name != "openrouter" {
				t.Errorf("name = %q, want openrouter", p.name)
			}
		})
	}
}

func TestOpenRouterProvider_RejectsPDF(t *testing.T) {
	// Unroutable base URL: the request must fail before any dial.
	p, err := NewOpenRouterProvider(OpenRouterConfig{APIKey: "sk-or-test", BaseURL: "http://127.0.0.1:1/v1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = p.Generate(context.Background(), Request{
		System: "Write a quiz.",
		Messages: []Message{{
			Role:        RoleUser,
			Content:     "Use the attached notes.",
			Attachments: []Attachment{{MIMEType: MIMETypePDF, Data: []byte("%PDF-1.4")}},
		}},
	})

	var unsupported *ErrUnsupportedAttachment
	if !errors.As(err, &unsupported) {
		t.Fatalf("err = %v, want *ErrUnsupportedAttachment", err)
	}
	if unsupported.Provider != "openrouter" || unsupported.MIMEType != MIMETypePDF {
		t.Errorf("got %+v", unsupported)
	}
}
