package coupon

// EligibleLines returns the subset of lines the rule's product and category
// restrictions permit. An unrestricted rule matches every line. When both
// restriction dimensions are present a line must match both of them (AND
// semantics). The input is never mutated.
func EligibleLines(lines []Line, rule *Rule) []Line {
	if !rule.Restricted() {
		return append([]Line(nil), lines...)
	}

	products := toSet(rule.ApplicableProducts)
	categories := toSet(rule.ApplicableCategories)

	eligible := make([]Line, 0, len(lines))
	for _, line := range lines {
		if len(products) > 0 && !products[line.ProductID] {
			continue
		}
		if len(categories) > 0 && !categories[line.Category] {
			continue
		}
		eligible = append(eligible, line)
	}
	return eligible
}

func toSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
