// Package catalog holds the fixed reference lists shown on the requirement
// and registration forms.
package catalog

import "strings"

type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var Categories = []Option{
	{"electronics", "Electronics & Gadgets"},
	{"clothing", "Clothing & Apparel"},
	{"food-beverages", "Food & Beverages"},
	{"health-beauty", "Health & Beauty"},
	{"home-garden", "Home & Garden"},
	{"industrial", "Industrial & Machinery"},
	{"automotive", "Automotive & Vehicles"},
	{"construction", "Construction & Building Materials"},
	{"agriculture", "Agriculture & Farming"},
	{"textiles", "Textiles & Fabrics"},
	{"chemicals", "Chemicals & Raw Materials"},
	{"packaging", "Packaging & Printing"},
	{"furniture", "Furniture & Fixtures"},
	{"sports-fitness", "Sports & Fitness"},
	{"stationery", "Stationery & Office Supplies"},
	{"toys-games", "Toys & Games"},
	{"jewelry", "Jewelry & Accessories"},
	{"medical", "Medical & Healthcare Equipment"},
	{"it-services", "IT & Software Services"},
	{"logistics", "Logistics & Transportation"},
	{"hospitality", "Hospitality & Catering"},
	{"education", "Education & Training"},
	{"security", "Security & Safety"},
	{"events", "Events & Entertainment"},
	{"other", "Other"},
}

var Units = []Option{
	{"pieces", "Pieces"},
	{"kg", "Kilograms (kg)"},
	{"g", "Grams (g)"},
	{"liters", "Liters (L)"},
	{"ml", "Milliliters (ml)"},
	{"meters", "Meters (m)"},
	{"feet", "Feet (ft)"},
	{"boxes", "Boxes"},
	{"packets", "Packets"},
	{"dozens", "Dozens"},
	{"sets", "Sets"},
	{"pairs", "Pairs"},
}

var Fragrances = []string{
	"None", "Lavender", "Rose", "Jasmine", "Sandalwood", "Lemon", "Orange",
	"Mint", "Vanilla", "Coconut", "Aloe Vera", "Neem", "Other",
}

// AllCategories is the filter value that disables category filtering.
const AllCategories = "all"

const DefaultUnit = "pieces"

var fragranceKeywords = []string{"soap", "perfume", "shampoo", "detergent", "freshener"}

// CategoryLabel returns the display label, or the value itself when unknown.
func CategoryLabel(value string) string {
	for _, c := range Categories {
		if c.Value == value {
			return c.Label
		}
	}
	return value
}

func IsCategory(value string) bool {
	for _, c := range Categories {
		if c.Value == value {
			return true
		}
	}
	return false
}

func IsUnit(value string) bool {
	for _, u := range Units {
		if u.Value == value {
			return true
		}
	}
	return false
}

// ShowsFragrance reports whether the product name is scent-relevant.
func ShowsFragrance(productName string) bool {
	low := strings.ToLower(productName)
	for _, kw := range fragranceKeywords {
		if strings.Contains(low, kw) {
			return true
		}
	}
	return false
}
