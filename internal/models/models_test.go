package models

import "testing"

func TestRoleRoundTrip(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAssistant} {
		got, err := ParseRole(r.String())
		if err != nil {
			t.Fatalf("ParseRole(%q): %v", r.String(), err)
		}
		if got != r {
			t.Errorf("ParseRole(%q) = %v, want %v", r.String(), got, r)
		}
	}
	if _, err := ParseRole("system"); err == nil {
		t.Error("ParseRole(system) should fail")
	}
}

func TestGenerationParamsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*GenerationParams)
		wantErr bool
	}{
		{"defaults", func(*GenerationParams) {}, false},
		{"temperature high", func(p *GenerationParams) { p.Temperature = 2.1 }, true},
		{"topP negative", func(p *GenerationParams) { p.TopP = -0.1 }, true},
		{"topK zero", func(p *GenerationParams) { p.TopK = 0 }, true},
		{"topK max", func(p *GenerationParams) { p.TopK = 100 }, false},
		{"tokens too many", func(p *GenerationParams) { p.MaxOutputTokens = 65537 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParams()
			tt.mutate(&p)
			if err := p.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewCompletionRequestCopiesTurns(t *testing.T) {
	turns := []Turn{{Role: RoleUser, Parts: []Part{TextPart("hi")}}}
	req := NewCompletionRequest("m", "", turns, DefaultParams(), true)

	turns[0].Parts[0] = TextPart("changed")
	if req.Turns[0].Parts[0].Text != "hi" {
		t.Errorf("request shares parts with caller: %q", req.Turns[0].Parts[0].Text)
	}
}

func TestIsTerminal(t *testing.T) {
	if IsTerminal(Chunk{Text: "a"}) {
		t.Error("Chunk is not terminal")
	}
	if !IsTerminal(Done{}) || !IsTerminal(Error{}) {
		t.Error("Done and Error are terminal")
	}
}

func TestDefaultPrompt(t *testing.T) {
	if DefaultPrompt(KindVideo) != VideoAnalysisPrompt {
		t.Error("video kind should use the analysis prompt")
	}
	if DefaultPrompt(KindNone) != "" {
		t.Error("KindNone has no default prompt")
	}
}
