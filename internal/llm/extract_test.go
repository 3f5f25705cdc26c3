package llm

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"redditminer/internal/models"
)

const fullResult = `{
	"is_pain_point": true,
	"confidence": 0.85,
	"reason": "clear frustration with existing tooling",
	"pain_point": {
		"title": "CI pipelines are too slow",
		"description": "Builds take 40 minutes and block the whole team.",
		"industry_code": "DEVOPS",
		"type_code": "PERFORMANCE",
		"tags": ["ci", "build-speed"],
		"scores": {
			"urgency": {"score": 8, "reason": "blocking"},
			"frequency": {"score": 9, "reason": "every push"},
			"market_size": {"score": 7, "reason": "most teams"},
			"monetization": {"score": 6, "reason": "teams pay for CI"},
			"barrier_to_entry": {"score": 5, "reason": "crowded space"}
		}
	}
}`

func TestExtractJSONDirect(t *testing.T) {
	data, err := ExtractJSON(fullResult)
	require.NoError(t, err)
	assert.True(t, json.Valid(data))
}

func TestExtractJSONCodeBlock(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"json fence", "Here is the analysis:\n```json\n" + fullResult + "\n```\nDone."},
		{"bare fence", "```\n" + fullResult + "\n```"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := ExtractJSON(tt.content)
			require.NoError(t, err)

			result, err := ParseAnalysisResult(data)
			require.NoError(t, err)
			assert.True(t, result.IsPainPoint)
		})
	}
}

func TestExtractJSONInlineCode(t *testing.T) {
	content := "The verdict is `" + `{"is_pain_point": false, "confidence": 0.2, "reason": "just a question"}` + "` as shown."
	data, err := ExtractJSON(content)
	require.NoError(t, err)

	result, err := ParseAnalysisResult(data)
	require.NoError(t, err)
	assert.False(t, result.IsPainPoint)
}

func TestExtractJSONBraceSpan(t *testing.T) {
	content := `Sure! Based on the post: {"is_pain_point": false, "confidence": 0.1, "reason": "promotion"} hope that helps.`
	data, err := ExtractJSON(content)
	require.NoError(t, err)

	result, err := ParseAnalysisResult(data)
	require.NoError(t, err)
	assert.Equal(t, "promotion", result.Reason)
}

func TestExtractJSONTruncatedCodeBlock(t *testing.T) {
	// A response cut off mid-generation: open fence, no closing fence,
	// and the JSON ends inside a string value
	content := "```json\n" + `{"is_pain_point": true, "confidence": 0.9, "reason": "strong signal", "pain_point": {"title": "half a ti`

	data, err := ExtractJSON(content)
	require.NoError(t, err)
	require.True(t, json.Valid(data))

	result, err := ParseAnalysisResult(data)
	require.NoError(t, err)
	assert.True(t, result.IsPainPoint)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestExtractJSONFailures(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"whitespace", "   \n\t "},
		{"no json at all", "I could not analyze this post, sorry."},
		{"array not object", `[1, 2, 3]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractJSON(tt.content)
			assert.ErrorIs(t, err, ErrUnparseable)
		})
	}
}

func TestParseAnalysisResultRequiredFields(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty object", `{}`},
		{"missing reason", `{"is_pain_point": true, "confidence": 0.5}`},
		{"missing verdict", `{"confidence": 0.5, "reason": "hm"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseAnalysisResult([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseAnalysisResultRejectsOutOfRangeScores(t *testing.T) {
	data := `{
		"is_pain_point": true,
		"confidence": 0.9,
		"reason": "ok",
		"pain_point": {
			"title": "t", "description": "d",
			"industry_code": "DEVOPS", "type_code": "PERFORMANCE",
			"scores": {
				"urgency": {"score": 100, "reason": "r"},
				"frequency": {"score": -5, "reason": "r"},
				"market_size": {"score": 6, "reason": "r"},
				"monetization": {"score": 5, "reason": "r"},
				"barrier_to_entry": {"score": 5, "reason": "r"}
			}
		}
	}`
	_, err := ParseAnalysisResult([]byte(data))
	require.Error(t, err, "scores outside 0-10 must never reach persistence")
	assert.Contains(t, err.Error(), "out of range")
}

func TestParseAnalysisResultNormalizes(t *testing.T) {
	data := `{
		"is_pain_point": true,
		"confidence": 1.5,
		"reason": "ok",
		"pain_point": {
			"title": "t", "description": "d",
			"industry_code": "UNDERWATER_BASKETS",
			"type_code": "TOO_LOUD",
			"tags": ["1","2","3","4","5","6"],
			"scores": {}
		}
	}`
	result, err := ParseAnalysisResult([]byte(data))
	require.NoError(t, err)

	assert.Equal(t, 1.0, result.Confidence)
	assert.Len(t, result.PainPoint.Tags, 5)
	assert.Equal(t, models.IndustryOther, result.PainPoint.IndustryCode)
	assert.Equal(t, models.TypeOther, result.PainPoint.TypeCode)
}

func TestRepairJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already valid", `{"a": 1}`, `{"a": 1}`},
		{"unclosed object", `{"a": 1`, `{"a": 1}`},
		{"unclosed nested", `{"a": {"b": [1, 2`, `{"a": {"b": [1, 2]}}`},
		{"trailing comma", `{"a": 1,`, `{"a": 1}`},
		{"unterminated string value", `{"a": "partial val`, `{}`},
		{"dangling key", `{"a": 1, "b":`, `{"a": 1}`},
		{"dangling bareword", `{"a": 1, "b": tru`, `{"a": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RepairJSON(tt.in)
			assert.Equal(t, tt.want, got)
			assert.True(t, json.Valid([]byte(got)), "repaired output must be valid JSON: %s", got)
		})
	}
}

func TestRepairJSONDanglingKeyValue(t *testing.T) {
	// Cut off inside a string value: the dangling pair is removed and the
	// braces closed. The result may be empty, in which case the required
	// field check downstream rejects it
	got := RepairJSON(`{"is_pain_point": true, "title": "foo`)
	require.True(t, json.Valid([]byte(got)))

	_, err := ParseAnalysisResult([]byte(got))
	assert.Error(t, err, "a repaired-but-gutted object must not pass validation")
}

// A serialized valid result survives extraction and parsing unchanged
func TestExtractRoundTrip(t *testing.T) {
	original := models.AnalysisResult{
		IsPainPoint: true,
		Confidence:  0.85,
		Reason:      "clear complaint",
		PainPoint: &models.PainPointExtraction{
			Title:        "Slow CI",
			Description:  "Builds block the team",
			IndustryCode: models.IndustryDevOps,
			TypeCode:     models.TypePerformance,
			Tags:         []string{"ci", "speed"},
			Quotes:       []string{"it takes forever"},
			Scores: models.Scores{
				Urgency:        models.Score{Score: 8, Reason: "blocking"},
				Frequency:      models.Score{Score: 7, Reason: "daily"},
				MarketSize:     models.Score{Score: 6, Reason: "broad"},
				Monetization:   models.Score{Score: 5, Reason: "maybe"},
				BarrierToEntry: models.Score{Score: 5, Reason: "medium"},
			},
		},
	}

	serialized, err := json.Marshal(original)
	require.NoError(t, err)

	for _, wrap := range []string{"%s", "```json\n%s\n```", "Here you go:\n```\n%s\n```"} {
		data, err := ExtractJSON(fmt.Sprintf(wrap, serialized))
		require.NoError(t, err)

		parsed, err := ParseAnalysisResult(data)
		require.NoError(t, err)
		assert.Equal(t, original, *parsed)
	}
}

// Whatever prefix the model was cut off at, repair must yield valid JSON
func TestRepairJSONPrefixProperty(t *testing.T) {
	full := `{"is_pain_point": true, "confidence": 0.85, "reason": "r", "pain_point": {"title": "t", "tags": ["a", "b"], "scores": {"urgency": {"score": 8, "reason": "x"}}}}`
	for i := 1; i < len(full); i++ {
		repaired := RepairJSON(full[:i])
		assert.True(t, json.Valid([]byte(repaired)),
			"prefix of length %d repaired to invalid JSON: %q", i, repaired)
	}
}
