package assessment

import (
	"math"
	"sort"

	"github.com/volatiletech/null/v8"
)

// Rule names form a fixed catalog; anything else is a configuration error.
const (
	RuleAvg         = "avg"
	RuleDropLowestN = "dropLowestN"
	RuleWeightedAvg = "weightedAvg"
	RuleTagWeighted = "tagWeighted"
	RuleThreshold   = "threshold"
)

// Evaluate reduces a set of scores to a single value using the given rule.
// An empty score set yields a null result, not an error: users with no
// contributing scores are "unscored", never zero.
func Evaluate(rule Rule, scores []Score, tagWeights map[string]float64, opts Options) (null.Float64, error) {
	var res null.Float64
	var err error

	switch rule.Name() {
	case RuleAvg:
		res = avg(scores)
	case RuleDropLowestN:
		res, err = dropLowestN(rule, scores)
	case RuleWeightedAvg:
		res, err = weightedAvg(rule, scores)
	case RuleTagWeighted:
		res = tagWeighted(scores, tagWeights)
	case RuleThreshold:
		res, err = threshold(rule, scores)
	default:
		return null.Float64{}, newConfigurationErrorf("unknown rule %q", rule.Name())
	}
	if err != nil {
		return null.Float64{}, err
	}
	return round(res, opts), nil
}

func avg(scores []Score) null.Float64 {
	if len(scores) == 0 {
		return null.Float64{}
	}
	var sum float64
	for _, s := range scores {
		sum += s.Value
	}
	return null.Float64From(sum / float64(len(scores)))
}

// dropLowestN averages the scores remaining after discarding the n lowest.
// Ties are broken by stable input order. n >= len(scores) leaves the empty
// set, which averages to null just like avg does.
func dropLowestN(rule Rule, scores []Score) (null.Float64, error) {
	nf, err := rule.Param(0)
	if err != nil {
		return null.Float64{}, err
	}
	if nf < 0 || nf != math.Trunc(nf) {
		return null.Float64{}, newConfigurationErrorf("rule %q requires a non-negative integer, got %v", RuleDropLowestN, nf)
	}
	n := int(nf)
	if n >= len(scores) {
		return avg(nil), nil
	}

	idx := make([]int, len(scores))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool { return scores[idx[i]].Value < scores[idx[j]].Value })

	dropped := make(map[int]bool, n)
	for _, i := range idx[:n] {
		dropped[i] = true
	}

	kept := make([]Score, 0, len(scores)-n)
	for i, s := range scores {
		if !dropped[i] {
			kept = append(kept, s)
		}
	}
	return avg(kept), nil
}

// weightedAvg computes a per-item weighted mean with weights aligned
// positionally to the input scores; items beyond the weight list default to
// weight 1. Weights are used as given, they are not normalized.
func weightedAvg(rule Rule, scores []Score) (null.Float64, error) {
	if len(scores) == 0 {
		return null.Float64{}, nil
	}

	weights := make([]float64, rule.NumParams())
	for i := range weights {
		w, err := rule.Param(i)
		if err != nil {
			return null.Float64{}, err
		}
		if w < 0 {
			return null.Float64{}, newConfigurationErrorf("rule %q weight %d is negative", RuleWeightedAvg, i)
		}
		weights[i] = w
	}

	var sum, wsum float64
	for i, s := range scores {
		w := 1.0
		if i < len(weights) {
			w = weights[i]
		}
		sum += s.Value * w
		wsum += w
	}
	if wsum == 0 {
		return null.Float64{}, nil
	}
	return null.Float64From(sum / wsum), nil
}

// tagWeighted first reduces scores within each tag using avg, then combines
// the per-tag means using the metric's tagWeights. Tags without a configured
// weight default to weight 1. Weights are used exactly as given: they are
// not normalized, even when they do not sum to 1.
func tagWeighted(scores []Score, tagWeights map[string]float64) null.Float64 {
	if len(scores) == 0 {
		return null.Float64{}
	}

	byTag := make(map[string][]Score)
	tags := make([]string, 0)
	for _, s := range scores {
		tag := s.Tag
		if tag == "" {
			tag = DefaultTag
		}
		if _, ok := byTag[tag]; !ok {
			tags = append(tags, tag)
		}
		byTag[tag] = append(byTag[tag], s)
	}

	var sum float64
	for _, tag := range tags {
		mean := avg(byTag[tag])
		if !mean.Valid {
			continue
		}
		w := 1.0
		if tw, ok := tagWeights[tag]; ok {
			w = tw
		}
		sum += mean.Float64 * w
	}
	return null.Float64From(sum)
}

// threshold classifies the mean score against a cutoff: 1 if mean >= cutoff,
// 0 otherwise. No scores yields null.
func threshold(rule Rule, scores []Score) (null.Float64, error) {
	cutoff, err := rule.Param(0)
	if err != nil {
		return null.Float64{}, err
	}
	mean := avg(scores)
	if !mean.Valid {
		return null.Float64{}, nil
	}
	if mean.Float64 >= cutoff {
		return null.Float64From(1), nil
	}
	return null.Float64From(0), nil
}

// round applies the opaque "roundTo" policy option (decimal places) if set.
func round(res null.Float64, opts Options) null.Float64 {
	if !res.Valid || opts == nil {
		return res
	}
	digits, ok := opts["roundTo"].(float64)
	if !ok {
		if d, isInt := opts["roundTo"].(int); isInt {
			digits = float64(d)
		} else {
			return res
		}
	}
	pow := math.Pow(10, digits)
	return null.Float64From(math.Round(res.Float64*pow) / pow)
}
