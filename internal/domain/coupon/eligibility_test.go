package coupon

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEligibleLines(t *testing.T) {
	lines := []Line{
		{ProductID: "a", Category: "books", Price: d("100"), Quantity: 1},
		{ProductID: "b", Category: "books", Price: d("200"), Quantity: 2},
		{ProductID: "c", Category: "toys", Price: d("300"), Quantity: 1},
	}

	tests := []struct {
		name    string
		rule    *Rule
		wantIDs []string
	}{
		{
			name:    "unrestricted rule matches everything",
			rule:    &Rule{},
			wantIDs: []string{"a", "b", "c"},
		},
		{
			name:    "product restriction only",
			rule:    &Rule{ApplicableProducts: []string{"a", "c"}},
			wantIDs: []string{"a", "c"},
		},
		{
			name:    "category restriction only",
			rule:    &Rule{ApplicableCategories: []string{"books"}},
			wantIDs: []string{"a", "b"},
		},
		{
			name: "both restrictions require both to match",
			rule: &Rule{
				ApplicableProducts:   []string{"a", "c"},
				ApplicableCategories: []string{"books"},
			},
			wantIDs: []string{"a"},
		},
		{
			name:    "restriction with no matches",
			rule:    &Rule{ApplicableProducts: []string{"z"}},
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EligibleLines(lines, tt.rule)

			gotIDs := make([]string, len(got))
			for i, line := range got {
				gotIDs[i] = line.ProductID
			}
			assert.ElementsMatch(t, tt.wantIDs, gotIDs)
		})
	}
}

func TestEligibleLinesDoesNotMutateInput(t *testing.T) {
	lines := []Line{
		{ProductID: "a", Category: "books", Price: d("100"), Quantity: 1},
		{ProductID: "b", Category: "toys", Price: d("50"), Quantity: 1},
	}
	orig := append([]Line(nil), lines...)

	got := EligibleLines(lines, &Rule{ApplicableCategories: []string{"toys"}})
	require.Len(t, got, 1)
	got[0].Quantity = 99

	assert.Equal(t, orig, lines)
}
