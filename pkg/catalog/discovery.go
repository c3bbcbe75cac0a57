package catalog

import (
	"sort"
	"strings"

	"github.com/agentmesh/agentmesh/pkg/a2a"
)

// Scoring weights for keyword ranking. The strategy is intentionally a
// simple keyword overlap; swap Discover out behind the Registry if a
// smarter ranker is ever needed.
const (
	weightDescription      = 2
	weightSkillName        = 2
	weightSkillDescription = 3
	weightTag              = 2
)

// ScoredAgent pairs a card with its relevance score for one query.
type ScoredAgent struct {
	Card  a2a.AgentCard `json:"card"`
	Score int           `json:"score"`
}

/*
Discover ranks registered agents against a free-text query and an optional
tag filter. Scoring is deterministic: query terms are matched
case-insensitively against agent description, skill names and skill
descriptions, and requested tags against the card's tag set. Only agents
with a positive score are returned, best first, truncated to maxResults.
Ties keep registry insertion order.
*/
func (registry *Registry) Discover(query string, tags []string, maxResults int) []ScoredAgent {
	terms := queryTerms(query)
	cards := registry.List()

	scored := make([]ScoredAgent, 0, len(cards))

	for _, card := range cards {
		score := scoreCard(card, terms, tags)

		if score > 0 {
			scored = append(scored, ScoredAgent{Card: card, Score: score})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if maxResults > 0 && len(scored) > maxResults {
		scored = scored[:maxResults]
	}

	return scored
}

func scoreCard(card a2a.AgentCard, terms []string, tags []string) int {
	score := 0
	description := strings.ToLower(card.Description)

	for _, term := range terms {
		if strings.Contains(description, term) {
			score += weightDescription
		}

		for _, skill := range card.Skills {
			if strings.Contains(strings.ToLower(skill.Name), term) {
				score += weightSkillName
			}

			if strings.Contains(strings.ToLower(skill.Description), term) {
				score += weightSkillDescription
			}
		}
	}

	for _, want := range tags {
		for _, have := range card.Tags {
			if strings.EqualFold(want, have) {
				score += weightTag
				break
			}
		}
	}

	return score
}

// queryTerms lowercases and splits a query, dropping single-character
// tokens so punctuation noise does not score.
func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	})

	terms := make([]string, 0, len(fields))

	for _, field := range fields {
		if len(field) > 1 {
			terms = append(terms, field)
		}
	}

	return terms
}
