package catalog

import "testing"

func TestShowsFragrance(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"need soap", true},
		{"Herbal SHAMPOO 200ml", true},
		{"room freshener", true},
		{"laptop", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShowsFragrance(tt.name); got != tt.want {
				t.Fatalf("got=%v want=%v", got, tt.want)
			}
		})
	}
}

func TestCategoryLabel(t *testing.T) {
	if got := CategoryLabel("health-beauty"); got != "Health & Beauty" {
		t.Fatalf("got=%q", got)
	}
	if got := CategoryLabel("unknown-thing"); got != "unknown-thing" {
		t.Fatalf("unknown category should fall back to value, got=%q", got)
	}
	if !IsUnit("pieces") || IsUnit("tons") {
		t.Fatal("unit lookup mismatch")
	}
}

func TestDefaultCities(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range DefaultCities() {
		if seen[c.ID] {
			t.Fatalf("duplicate id %s", c.ID)
		}
		seen[c.ID] = true
		if c.Name == "" || c.State == "" {
			t.Fatalf("incomplete city %+v", c)
		}
	}
	if !seen["pune"] || !seen["new-delhi"] {
		t.Fatalf("missing expected ids: %v", seen)
	}
}
