package engine

import (
	"testing"

	"google.golang.org/genai"
)

func TestGeminiText(t *testing.T) {
	tests := []struct {
		name    string
		resp    *genai.GenerateContentResponse
		want    string
		wantErr bool
	}{
		{name: "nil response", resp: nil, wantErr: true},
		{name: "no candidates", resp: &genai.GenerateContentResponse{}, wantErr: true},
		{
			name: "blank parts",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{{Text: "  "}, nil}}},
				nil,
				{Content: nil},
			}},
			wantErr: true,
		},
		{
			name: "single part",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: genai.NewContentFromText(" Dear client ", genai.RoleModel)},
			}},
			want: "Dear client",
		},
		{
			name: "multi part",
			resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
				{Content: &genai.Content{Parts: []*genai.Part{{Text: `{"skills":`}, nil, {Text: `["go"]}`}}}},
			}},
			want: `{"skills":["go"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := geminiText(tt.resp)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("geminiText() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("geminiText: %v", err)
			}
			if got != tt.want {
				t.Errorf("geminiText() = %q, want %q", got, tt.want)
			}
		})
	}
}
