package ai

import (
	"fmt"
	"strings"

	"github.com/shinyyama/hoko/internal/catalog"
)

const categoryPrompt = `You sort a buyer's product requirement into one marketplace category.

Rules:
* Answer with exactly one category value from the list below, wrapped in dollar signs, e.g. $health-beauty$.
* Use the value, not the label.
* If nothing fits, answer $other$.
* No explanation, no extra text.`

// BuildCategoryPrompt lists the catalog values after the rules.
func BuildCategoryPrompt() string {
	var b strings.Builder
	b.WriteString(categoryPrompt)
	b.WriteString("\n\nCategories:\n")
	for _, c := range catalog.Categories {
		fmt.Fprintf(&b, "%s: %s\n", c.Value, c.Label)
	}
	return b.String()
}
