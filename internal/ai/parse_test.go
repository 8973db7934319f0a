package ai

import (
	"strings"
	"testing"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"strict", "$health-beauty$", "health-beauty", false},
		{"strict with text", "answer: $electronics$\n", "electronics", false},
		{"upper case", "$Toys-Games$", "toys-games", false},
		{"fallback", "I would say industrial here", "industrial", false},
		{"unknown strict", "$gadgets$", "", true},
		{"no match", "nothing here", "", true},
		{"multiple", "$clothing$ or $textiles$", "clothing", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCategory(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Fatalf("got=%v want=%v", got, tt.want)
			}
		})
	}
}

func TestBuildCategoryPrompt(t *testing.T) {
	p := BuildCategoryPrompt()
	for _, want := range []string{"$health-beauty$", "other: Other", "electronics: Electronics & Gadgets"} {
		if !strings.Contains(p, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}
