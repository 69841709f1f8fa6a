package prompt

import (
	"fmt"
	"strings"
)

// RankingInput holds everything the ranking prompt is built from.
type RankingInput struct {
	Components []string
	Specialty  string
	Condition  string
}

type rankingData struct {
	Specialty      string
	Condition      string
	ComponentsText string
	Count          int
}

// Ranking builds a single instruction asking the model to order all components
// by clinical importance. The component count appears in both the
// instructions and the sample output so the model knows how many entries to return.
func Ranking(in RankingInput) (string, error) {
	return render(rankingTemplate, rankingData{
		Specialty:      in.Specialty,
		Condition:      in.Condition,
		ComponentsText: NumberedList(in.Components),
		Count:          len(in.Components),
	})
}

// NumberedList renders items as a 1-indexed list, one item per line.
func NumberedList(items []string) string {
	var b strings.Builder
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	return b.String()
}
