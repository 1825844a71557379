package compatibility

// Check runs every rule over parts and returns the violations in rule order.
// An empty result means the parts are compatible. Missing kinds never count
// as a violation.
func Check[P Part](parts []P) []string {
	s := index(parts)
	issues := []string{}
	for _, r := range rules {
		issues = append(issues, r(s)...)
	}
	return issues
}

// Introduced returns the issues that appear once candidate is slotted into
// base but were not present in base alone. The candidate replaces a part of
// the same kind, except Storage, which is added alongside existing drives.
func Introduced[P Part](base []P, candidate P) []string {
	before := make(map[string]struct{})
	for _, issue := range Check(base) {
		before[issue] = struct{}{}
	}

	var introduced []string
	for _, issue := range Check(withCandidate(base, candidate)) {
		if _, seen := before[issue]; !seen {
			introduced = append(introduced, issue)
		}
	}
	return introduced
}

// Compatible filters candidates down to those that introduce no new issue
// into base.
func Compatible[P Part](base []P, candidates []P) []P {
	var out []P
	for _, c := range candidates {
		if len(Introduced(base, c)) == 0 {
			out = append(out, c)
		}
	}
	return out
}

func withCandidate[P Part](base []P, candidate P) []P {
	merged := make([]P, 0, len(base)+1)
	kind := candidate.Kind()
	for _, p := range base {
		if kind != KindStorage && p.Kind() == kind {
			continue
		}
		merged = append(merged, p)
	}
	return append(merged, candidate)
}
