package domain

import "strings"

// Category is one of the fixed market taxonomies inferred from tags and title.
type Category string

const (
	CategorySports        Category = "Sports"
	CategoryCrypto        Category = "Crypto"
	CategoryPolitics      Category = "Politics"
	CategoryEconomy       Category = "Economy"
	CategoryEntertainment Category = "Entertainment"
	CategoryTechnology    Category = "Technology"
	CategoryWeather       Category = "Weather"
	CategoryGaming        Category = "Gaming"
	CategoryOther         Category = "Other"
)

// Categories lists every category in classification priority order, with
// Other last.
var Categories = []Category{
	CategorySports,
	CategoryCrypto,
	CategoryPolitics,
	CategoryEconomy,
	CategoryEntertainment,
	CategoryTechnology,
	CategoryWeather,
	CategoryGaming,
	CategoryOther,
}

// ParseCategory matches s case-insensitively against the known categories.
func ParseCategory(s string) (Category, bool) {
	for _, c := range Categories {
		if strings.EqualFold(string(c), strings.TrimSpace(s)) {
			return c, true
		}
	}
	return "", false
}
