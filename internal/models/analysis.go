package models

import (
	"fmt"
	"math"
)

// Industry classification codes the model may assign. Anything outside
// this vocabulary is coerced to IndustryOther rather than rejected
const (
	IndustryDevTools      = "DEV_TOOLS"
	IndustryDevOps        = "DEVOPS"
	IndustryData          = "DATA"
	IndustrySaaS          = "SAAS"
	IndustryMarketing     = "MARKETING"
	IndustrySales         = "SALES"
	IndustryProductivity  = "PRODUCTIVITY"
	IndustryFinance       = "FINANCE"
	IndustryHR            = "HR"
	IndustrySecurity      = "SECURITY"
	IndustryEcommerce     = "ECOMMERCE"
	IndustryCommunication = "COMMUNICATION"
	IndustryDesign        = "DESIGN"
	IndustryAIML          = "AI_ML"
	IndustryOther         = "OTHER"
)

// Pain-point type codes, same coercion rule as industry codes
const (
	TypeMissingFeature = "MISSING_FEATURE"
	TypePoorUX         = "POOR_UX"
	TypeHighCost       = "HIGH_COST"
	TypeEfficiency     = "EFFICIENCY"
	TypeIntegration    = "INTEGRATION"
	TypeReliability    = "RELIABILITY"
	TypePerformance    = "PERFORMANCE"
	TypeLearningCurve  = "LEARNING_CURVE"
	TypeNoSolution     = "NO_SOLUTION"
	TypeOther          = "OTHER"
)

var validIndustryCodes = map[string]bool{
	IndustryDevTools: true, IndustryDevOps: true, IndustryData: true,
	IndustrySaaS: true, IndustryMarketing: true, IndustrySales: true,
	IndustryProductivity: true, IndustryFinance: true, IndustryHR: true,
	IndustrySecurity: true, IndustryEcommerce: true, IndustryCommunication: true,
	IndustryDesign: true, IndustryAIML: true, IndustryOther: true,
}

var validTypeCodes = map[string]bool{
	TypeMissingFeature: true, TypePoorUX: true, TypeHighCost: true,
	TypeEfficiency: true, TypeIntegration: true, TypeReliability: true,
	TypePerformance: true, TypeLearningCurve: true, TypeNoSolution: true,
	TypeOther: true,
}

// Score is one dimension's rating with the model's justification
type Score struct {
	Score  int    `json:"score"`
	Reason string `json:"reason"`
}

// Scores holds all five scoring dimensions
type Scores struct {
	Urgency        Score `json:"urgency"`
	Frequency      Score `json:"frequency"`
	MarketSize     Score `json:"market_size"`
	Monetization   Score `json:"monetization"`
	BarrierToEntry Score `json:"barrier_to_entry"`
}

// PainPointExtraction is the structured pain point the model returns
type PainPointExtraction struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	UserNeed        string   `json:"user_need,omitempty"`
	CurrentSolution string   `json:"current_solution,omitempty"`
	IdealSolution   string   `json:"ideal_solution,omitempty"`
	IndustryCode    string   `json:"industry_code"`
	TypeCode        string   `json:"type_code"`
	Tags            []string `json:"tags,omitempty"`
	Competitors     []string `json:"mentioned_competitors,omitempty"`
	Quotes          []string `json:"quotes,omitempty"`
	TargetPersonas  []string `json:"target_personas,omitempty"`
	Insights        []string `json:"actionable_insights,omitempty"`
	Scores          Scores   `json:"scores"`
}

// AnalysisResult is the model's verdict on a single post.
// PainPoint is set only when IsPainPoint is true
type AnalysisResult struct {
	IsPainPoint bool                 `json:"is_pain_point"`
	Confidence  float64              `json:"confidence"`
	Reason      string               `json:"reason"`
	PainPoint   *PainPointExtraction `json:"pain_point,omitempty"`
}

// Normalize coerces the result into its valid range: confidence clamped
// to [0,1] and rounded to two decimals, at most five tags, and unknown
// industry/type codes replaced with OTHER
func (r *AnalysisResult) Normalize() {
	r.Confidence = round2(clamp01(r.Confidence))

	if r.PainPoint == nil {
		return
	}
	p := r.PainPoint
	if len(p.Tags) > 5 {
		p.Tags = p.Tags[:5]
	}
	if !validIndustryCodes[p.IndustryCode] {
		p.IndustryCode = IndustryOther
	}
	if !validTypeCodes[p.TypeCode] {
		p.TypeCode = TypeOther
	}
}

// Validate rejects a result whose dimension scores fall outside the
// 0-10 range. Unlike code coercion, an out-of-range score means the
// model ignored the scoring contract, so the whole result is suspect
func (r *AnalysisResult) Validate() error {
	if r.PainPoint == nil {
		return nil
	}
	s := r.PainPoint.Scores
	dimensions := []struct {
		name  string
		value int
	}{
		{"urgency", s.Urgency.Score},
		{"frequency", s.Frequency.Score},
		{"market_size", s.MarketSize.Score},
		{"monetization", s.Monetization.Score},
		{"barrier_to_entry", s.BarrierToEntry.Score},
	}
	for _, d := range dimensions {
		if d.value < 0 || d.value > 10 {
			return fmt.Errorf("dimension score %s out of range 0-10: %d", d.name, d.value)
		}
	}
	return nil
}

// TotalScore computes the weighted overall score, rounded to two decimals.
// Weights: market_size 25%, urgency/frequency/monetization 20% each,
// barrier_to_entry 15%
func TotalScore(s Scores) float64 {
	total := float64(s.Urgency.Score)*0.20 +
		float64(s.Frequency.Score)*0.20 +
		float64(s.MarketSize.Score)*0.25 +
		float64(s.Monetization.Score)*0.20 +
		float64(s.BarrierToEntry.Score)*0.15
	return round2(total)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
