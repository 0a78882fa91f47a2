// Package analytics holds the trade aggregation core: category inference,
// the average-cost position ledger, trader and market rollups, price history
// and whale-flow insights. Everything here is synchronous and free of I/O so
// the HTTP handlers, the realtime sessions and the ingest pipeline share one
// implementation.
package analytics

import (
	"strings"

	"github.com/emmatheo/polyscop/internal/domain"
)

type categoryKeywords struct {
	category domain.Category
	keywords []string
}

// categoryTable is evaluated in order; the first category with a matching
// keyword wins.
var categoryTable = []categoryKeywords{
	{domain.CategorySports, []string{"sports", "nfl", "nba", "mlb", "soccer", "football", "basketball", "baseball", "tennis", "hockey"}},
	{domain.CategoryCrypto, []string{"crypto", "bitcoin", "ethereum", "btc", "eth", "blockchain", "defi", "nft"}},
	{domain.CategoryPolitics, []string{"politics", "election", "president", "government", "congress", "senate", "policy", "law", "trump"}},
	{domain.CategoryEconomy, []string{"economy", "economics", "market", "stock", "finance", "gdp", "inflation", "fed", "interest"}},
	{domain.CategoryEntertainment, []string{"entertainment", "movie", "film", "music", "celebrity", "awards", "tv", "show"}},
	{domain.CategoryTechnology, []string{"technology", "tech", "ai", "software", "hardware", "startup", "innovation", "apple", "google"}},
	{domain.CategoryWeather, []string{"weather", "hurricane", "temperature", "storm", "climate", "snow", "rain"}},
	{domain.CategoryGaming, []string{"gaming", "esports", "video game", "league of legends", "dota", "csgo", "valorant", "twitch"}},
}

// Classify maps a trade's tags and title to a category. A keyword matches
// when it is a case-insensitive substring of any tag or of the title.
func Classify(tags []string, title string) domain.Category {
	lowerTitle := strings.ToLower(title)
	lowerTags := make([]string, 0, len(tags))
	for _, t := range tags {
		lowerTags = append(lowerTags, strings.ToLower(t))
	}

	for _, entry := range categoryTable {
		for _, kw := range entry.keywords {
			if strings.Contains(lowerTitle, kw) {
				return entry.category
			}
			for _, tag := range lowerTags {
				if strings.Contains(tag, kw) {
					return entry.category
				}
			}
		}
	}
	return domain.CategoryOther
}

// ClassifyTrade sets t.Category in place and returns it.
func ClassifyTrade(t *domain.Trade) domain.Category {
	t.Category = Classify(t.Tags, t.Market)
	return t.Category
}
