package correlation

// ReferenceRecord is one observation of two entities appearing together in
// a shared context").
type ReferenceRecord struct {
	SourceFQN  string
	TargetFQN  string
	ContextFQN string
}

// BuildCoOccurrences counts unordered (source, target) pairs co-appearing
// in the same context across records, and derives strength = count /
// total_contexts, scaled by 10 and capped at 1.0.
func BuildCoOccurrences(records []ReferenceRecord) []CorrelationEntry {
	contexts := make(map[string]struct{})
	counts := make(map[[2]string]int)

	for _, r := range records {
		if r.SourceFQN == "" || r.TargetFQN == "" || r.SourceFQN == r.TargetFQN {
			continue
		}
		contexts[r.ContextFQN] = struct{}{}
		counts[pairKey(r.SourceFQN, r.TargetFQN)]++
	}

	totalContexts := len(contexts)
	if totalContexts == 0 {
		return nil
	}

	out := make([]CorrelationEntry, 0, len(counts))
	for key, count := range counts {
		strength := clamp01(float64(count) / float64(totalContexts) * 10.0)
		out = append(out, CorrelationEntry{
			SourceID: key[0], TargetID: key[1], Strength: strength, Count: count,
		})
	}
	return out
}
