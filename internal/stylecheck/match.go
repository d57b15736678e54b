package stylecheck

import (
	"sort"

	"github.com/jordan/design-validator/internal/types"
)

// Options tunes matching and attribute comparison.
type Options struct {
	// SimilarityThreshold is the minimum text similarity for a layer to
	// claim a node.
	SimilarityThreshold float64
	// NumericTolerancePx is the tolerance for continuous attributes
	// (font-size, line-height).
	NumericTolerancePx float64
	// ColorChannelTolerance is the per-channel tolerance for colors.
	ColorChannelTolerance int
}

// candidate is one potential layer-to-node pairing.
type candidate struct {
	layer int
	node  int
	score float64
}

// MatchAndCompare matches each design text layer to at most one live
// text node by text similarity and compares the declared style against
// the node's computed style. Claims are resolved globally by descending
// score so a node is never claimed twice; ties break by design layer
// order, which keeps the result deterministic.
func MatchAndCompare(layers []types.DesignLayer, nodes []types.LiveTextNode, opts Options) []types.StyleComparison {
	comparisons := make([]types.StyleComparison, len(layers))

	normalizedNodes := make([]string, len(nodes))
	for j := range nodes {
		normalizedNodes[j] = NormalizeText(nodes[j].Text)
	}

	var candidates []candidate
	for i := range layers {
		comparisons[i] = types.StyleComparison{
			LayerIndex:       i,
			LayerName:        layers[i].Name,
			LayerText:        layers[i].TextContent,
			MatchedNodeIndex: -1,
		}
		if !layers[i].HasText() {
			// No text, no live counterpart to compare structurally.
			comparisons[i].Status = types.ComparisonNotApplicable
			continue
		}
		comparisons[i].Status = types.ComparisonNotFound

		normalized := NormalizeText(layers[i].TextContent)
		for j := range nodes {
			score := Similarity(normalized, normalizedNodes[j])
			if score >= opts.SimilarityThreshold {
				candidates = append(candidates, candidate{layer: i, node: j, score: score})
			}
		}
	}

	// Highest score wins; ties go to the earlier design layer, then the
	// earlier node.
	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		if candidates[a].layer != candidates[b].layer {
			return candidates[a].layer < candidates[b].layer
		}
		return candidates[a].node < candidates[b].node
	})

	claimedNode := make(map[int]bool, len(nodes))
	claimedLayer := make(map[int]bool, len(layers))
	for _, c := range candidates {
		if claimedLayer[c.layer] || claimedNode[c.node] {
			continue
		}
		claimedLayer[c.layer] = true
		claimedNode[c.node] = true

		cmp := &comparisons[c.layer]
		cmp.MatchedNodeIndex = c.node
		cmp.Score = c.score
		cmp.Status = types.ComparisonPass
		cmp.Attributes = compareStyles(layers[c.layer].Style, nodes[c.node].Computed, opts)
		for _, attr := range cmp.Attributes {
			if !attr.Match {
				cmp.Status = types.ComparisonMismatch
				break
			}
		}
	}

	return comparisons
}

// compareStyles checks every declared attribute against the same-named
// computed entry, in a stable attribute order.
func compareStyles(declared, computed map[string]string, opts Options) []types.AttributeComparison {
	if len(declared) == 0 {
		return nil
	}

	attrs := make([]string, 0, len(declared))
	for attr := range declared {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	result := make([]types.AttributeComparison, 0, len(attrs))
	for _, attr := range attrs {
		expected := declared[attr]
		actual, ok := computed[attr]
		if !ok {
			result = append(result, types.AttributeComparison{
				Attribute: attr,
				Expected:  expected,
				Actual:    "",
				Match:     false,
			})
			continue
		}
		result = append(result, compareAttribute(attr, expected, actual, opts))
	}
	return result
}
