// Package ranking scores candidate items against a user preference vector
// and plans the ordered slate the deck builder draws from.
package ranking

import (
	"math"
	"sort"
	"strings"

	"horse.fit/bubble/internal/db"
	"horse.fit/bubble/internal/urlutil"
)

// Preferences is the per-user ranking input.
type Preferences struct {
	LikedTopics []string
	Serendipity float64
	Nationality string
}

// TopicWeight is one entry of the normalized topic distribution.
type TopicWeight struct {
	Topic  string  `json:"topic"`
	Weight float64 `json:"weight"`
}

// Candidate is one scored slate entry.
type Candidate struct {
	ID                     string   `json:"id"`
	Score                  float64  `json:"score"`
	TopicScore             float64  `json:"topicScore"`
	GeoScore               float64  `json:"geoScore"`
	VerificationMultiplier float64  `json:"verificationMultiplier"`
	Tags                   []string `json:"tags"`
	Regions                []string `json:"regions"`
}

// Plan is the slate-planning output: the distribution that produced the
// scores plus the candidates in descending score order.
type Plan struct {
	TopicDistribution []TopicWeight `json:"topicDistribution"`
	Candidates        []Candidate   `json:"candidates"`
}

// RankableItem is the slice of a persisted item the planner needs.
type RankableItem struct {
	ID     string
	Tags   []string
	Status string
}

// Distribution is an insertion-ordered topic weight map. Liked topics come
// first, residual candidate topics after, both in first-seen order.
type Distribution struct {
	order   []string
	weights map[string]float64
}

func newDistribution() *Distribution {
	return &Distribution{weights: make(map[string]float64)}
}

func (d *Distribution) set(topic string, weight float64) {
	if _, ok := d.weights[topic]; !ok {
		d.order = append(d.order, topic)
	}
	d.weights[topic] = weight
}

// Weight returns the normalized weight for a topic and whether it is present.
func (d *Distribution) Weight(topic string) (float64, bool) {
	weight, ok := d.weights[topic]
	return weight, ok
}

// Len reports the number of topics carrying weight.
func (d *Distribution) Len() int { return len(d.order) }

// Entries returns the distribution in insertion order.
func (d *Distribution) Entries() []TopicWeight {
	entries := make([]TopicWeight, 0, len(d.order))
	for _, topic := range d.order {
		entries = append(entries, TopicWeight{Topic: topic, Weight: d.weights[topic]})
	}
	return entries
}

func normalizeTopic(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

func clampSerendipity(value float64) float64 {
	if math.IsNaN(value) {
		return 0.2
	}
	return math.Min(1, math.Max(0, value))
}

// ComputeTopicDistribution assigns base weight 1 to every liked topic and
// splits a serendipity-sized pool across the remaining candidate topics,
// then normalizes everything to sum to 1.
func ComputeTopicDistribution(likedTopics, candidateTopics []string, serendipity float64) *Distribution {
	weights := newDistribution()
	total := 0.0

	seenLiked := make(map[string]struct{})
	for _, topic := range likedTopics {
		normalized := normalizeTopic(topic)
		if normalized == "" {
			continue
		}
		if _, ok := seenLiked[normalized]; ok {
			continue
		}
		seenLiked[normalized] = struct{}{}
		weights.set(normalized, 1)
		total++
	}

	var residual []string
	seenResidual := make(map[string]struct{})
	for _, topic := range candidateTopics {
		normalized := normalizeTopic(topic)
		if normalized == "" {
			continue
		}
		if _, liked := seenLiked[normalized]; liked {
			continue
		}
		if _, ok := seenResidual[normalized]; ok {
			continue
		}
		seenResidual[normalized] = struct{}{}
		residual = append(residual, normalized)
	}

	if len(residual) > 0 {
		residualWeight := math.Max(clampSerendipity(serendipity), 0.1) / float64(len(residual))
		for _, topic := range residual {
			weights.set(topic, residualWeight)
			total += residualWeight
		}
	}

	if total == 0 {
		return weights
	}
	for _, topic := range weights.order {
		weights.weights[topic] /= total
	}
	return weights
}

// ComputeTopicScore starts at a serendipity baseline and rises to the best
// matching topic weight. Items with no topical tags get half the serendipity.
func ComputeTopicScore(tags []string, distribution *Distribution, serendipity float64) float64 {
	topical := topicalTags(tags)
	if len(topical) == 0 {
		return clampSerendipity(serendipity) * 0.5
	}

	score := clampSerendipity(serendipity) * 0.25
	for _, tag := range topical {
		if weight, ok := distribution.Weight(normalizeTopic(tag)); ok {
			score = math.Max(score, weight)
		}
	}
	return score
}

// ComputeGeodiversityScore rewards foreign coverage: home-region content is
// dampened, global wires sit in between, and genuinely foreign regions score
// full marks.
func ComputeGeodiversityScore(nationality string, regions []string, serendipity float64) float64 {
	if len(regions) == 0 {
		return 0.6*clampSerendipity(serendipity) + 0.2
	}
	if nationality == "" {
		return 0.8
	}

	home := strings.ToUpper(strings.TrimSpace(nationality))
	if containsRegion(regions, home) {
		return 0.45
	}
	if containsRegion(regions, "GLOBAL") {
		return 0.7
	}
	return 1
}

// VerificationMultiplier maps a verification status to its score penalty.
func VerificationMultiplier(status string) float64 {
	switch status {
	case db.StatusContested:
		return 0.4
	case db.StatusDeveloping:
		return 0.7
	case db.StatusTentative:
		return 0.85
	default:
		return 1
	}
}

// ScoreItemForUser blends topic, geodiversity and verification scores. The
// verification multiplier applies twice: once inside the weighted blend and
// once over the total, compounding the penalty on unverified content.
func ScoreItemForUser(item RankableItem, distribution *Distribution, nationality string, serendipity float64) Candidate {
	topicScore := ComputeTopicScore(item.Tags, distribution, serendipity)
	regions := urlutil.RegionsFromTags(item.Tags)
	geoScore := ComputeGeodiversityScore(nationality, regions, serendipity)
	multiplier := VerificationMultiplier(item.Status)
	combined := 0.55*topicScore + 0.35*geoScore + 0.1*multiplier

	return Candidate{
		ID:                     item.ID,
		Score:                  combined * multiplier,
		TopicScore:             topicScore,
		GeoScore:               geoScore,
		VerificationMultiplier: multiplier,
		Tags:                   item.Tags,
		Regions:                explainRegions(regions, nationality),
	}
}

// PlanSlate scores every item and returns them stable-sorted by descending
// score together with the topic distribution that produced the scores.
func PlanSlate(items []RankableItem, prefs Preferences) Plan {
	var candidateTopics []string
	seen := make(map[string]struct{})
	for _, item := range items {
		for _, tag := range topicalTags(item.Tags) {
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			candidateTopics = append(candidateTopics, tag)
		}
	}

	distribution := ComputeTopicDistribution(prefs.LikedTopics, candidateTopics, prefs.Serendipity)

	candidates := make([]Candidate, 0, len(items))
	for _, item := range items {
		candidates = append(candidates, ScoreItemForUser(item, distribution, prefs.Nationality, prefs.Serendipity))
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	return Plan{
		TopicDistribution: distribution.Entries(),
		Candidates:        candidates,
	}
}

func topicalTags(tags []string) []string {
	var topical []string
	for _, tag := range tags {
		if !strings.HasPrefix(tag, urlutil.RegionTagPrefix) {
			topical = append(topical, tag)
		}
	}
	return topical
}

func containsRegion(regions []string, want string) bool {
	for _, region := range regions {
		if region == want {
			return true
		}
	}
	return false
}

// explainRegions orders the regions for display, leading with the user's
// home region when it applies.
func explainRegions(regions []string, nationality string) []string {
	if nationality == "" {
		if len(regions) > 0 {
			return regions
		}
		return []string{"GLOBAL"}
	}

	home := strings.ToUpper(strings.TrimSpace(nationality))
	if len(regions) == 0 {
		return []string{home, "GLOBAL"}
	}
	if containsRegion(regions, home) {
		ordered := []string{home}
		for _, region := range regions {
			if region != home {
				ordered = append(ordered, region)
			}
		}
		return ordered
	}
	return regions
}
