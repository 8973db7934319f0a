package catalog

import (
	"strings"

	"github.com/shinyyama/hoko/internal/model"
)

var citiesByState = []struct {
	state string
	names []string
}{
	{"Maharashtra", []string{"Mumbai", "Pune", "Nagpur", "Nashik"}},
	{"Karnataka", []string{"Bengaluru", "Mysuru"}},
	{"Tamil Nadu", []string{"Chennai", "Coimbatore"}},
	{"Telangana", []string{"Hyderabad"}},
	{"Delhi", []string{"New Delhi"}},
	{"West Bengal", []string{"Kolkata"}},
	{"Gujarat", []string{"Ahmedabad", "Surat"}},
	{"Rajasthan", []string{"Jaipur"}},
	{"Uttar Pradesh", []string{"Lucknow"}},
}

// DefaultCities is the seeded city list. Ids are the lowercased name with
// spaces turned into dashes, so reseeding is idempotent.
func DefaultCities() []model.City {
	var out []model.City
	for _, s := range citiesByState {
		for _, n := range s.names {
			out = append(out, model.City{ID: CityID(n), Name: n, State: s.state})
		}
	}
	return out
}

func CityID(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
