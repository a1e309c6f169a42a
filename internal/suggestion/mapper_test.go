package suggestion

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"audite/internal/model"
)

func suggestionIDs(ss []model.Suggestion) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		out = append(out, s.ID)
	}
	return out
}

func irrigationQuestions() []model.Question {
	return []model.Question{
		{
			ID: "Q1", Order: 1, Prompt: "Irrigation method", Kind: model.KindSingleChoice,
			Options: []model.Option{
				{Value: "gravity", Label: "Gravity", Suggestion: "Consider drip irrigation"},
				{Value: "drip", Label: "Drip"},
			},
		},
		{ID: "Q2", Order: 2, Prompt: "Describe your site", Kind: model.KindText},
	}
}

func TestKeywordRuleIsIdempotent(t *testing.T) {
	answers := model.AnswerMap{"Q7": model.Text("we use heavy industrial maquinaria")}

	first := MapSuggestions(model.SectorIndustrial, answers, nil)
	second := MapSuggestions(model.SectorIndustrial, answers, nil)

	assert.Contains(t, suggestionIDs(first), "industrial_01")
	assert.Equal(t, suggestionIDs(first), suggestionIDs(second))
	assert.Equal(t, first, second)
}

func TestOptionSuggestionAppearsOnce(t *testing.T) {
	// The answer fires the irrigation rule as well as the option text
	answers := model.AnswerMap{"Q1": model.Text("gravity"), "Q2": model.Text("riego por gravedad")}

	out := MapSuggestions(model.SectorAgricultural, answers, irrigationQuestions())

	count := 0
	for _, s := range out {
		if s.ID == "Q1-gravity" {
			count++
			assert.Equal(t, model.SourceOption, s.Source)
			assert.Equal(t, "Consider drip irrigation", s.Description)
			assert.Equal(t, "Gravity", s.OptionLabel)
			assert.Equal(t, "Q1", s.QuestionID)
		}
	}
	assert.Equal(t, 1, count)
	assert.Contains(t, suggestionIDs(out), "agro_01")
}

func TestOptionSuggestionsDeduplicate(t *testing.T) {
	questions := irrigationQuestions()
	questions[0].Options = append(questions[0].Options, questions[0].Options[0])

	out := MapSuggestions(model.SectorAgricultural, model.AnswerMap{"Q1": model.Text("Gravity")}, questions)
	assert.Equal(t, []string{"Q1-gravity"}, suggestionIDs(out))
}

func TestOptionSuggestionUsesOptionID(t *testing.T) {
	questions := []model.Question{{
		ID: "Q3", Order: 1, Kind: model.KindMultiChoice,
		Options: []model.Option{
			{ID: "led", Value: "LED lamps", Suggestion: "Add occupancy sensors"},
			{ID: "hal", Value: "Halogen", Suggestion: "Replace with LED"},
			{ID: "fl", Value: "Fluorescent", Suggestion: "Replace ballasts"},
		},
	}}

	out := OptionSuggestions(model.AnswerMap{"Q3": model.List("Halogen", "LED lamps")}, questions)
	assert.Equal(t, []string{"Q3-led", "Q3-hal"}, suggestionIDs(out))
}

func TestUnansweredQuestionsYieldNoOptionSuggestions(t *testing.T) {
	assert.Empty(t, OptionSuggestions(model.AnswerMap{}, irrigationQuestions()))
}

func TestRulesByAnswer(t *testing.T) {
	tests := []struct {
		name    string
		sector  model.Sector
		answers model.AnswerMap
		want    []string
	}{
		{
			name:    "industrial without renewables",
			sector:  model.SectorIndustrial,
			answers: model.AnswerMap{"Q1": model.Text("textiles")},
			want:    []string{"industrial_03"},
		},
		{
			name:    "industrial high consumption with solar",
			sector:  model.SectorIndustrial,
			answers: model.AnswerMap{"Q1": model.Number(2500), "Q2": model.List("Solar")},
			want:    []string{"industrial_02"},
		},
		{
			name:    "consumption as text with thousands separator",
			sector:  model.SectorIndustrial,
			answers: model.AnswerMap{"Q1": model.Text("12,000"), "Q2": model.Text("eólica")},
			want:    []string{"industrial_02"},
		},
		{
			name:    "non-finite numbers are not consumption",
			sector:  model.SectorIndustrial,
			answers: model.AnswerMap{"Q1": model.Text("Infinity"), "Q2": model.Text("NaN")},
			want:    []string{"industrial_03"},
		},
		{
			name:    "agricultural accents are ignored",
			sector:  model.SectorAgricultural,
			answers: model.AnswerMap{"Q1": model.Text("CÁMARA FRÍA y bombeo")},
			want:    []string{"agro_02", "agro_03"},
		},
		{
			name:    "commercial lighting from other text",
			sector:  model.SectorCommercial,
			answers: model.AnswerMap{"Q1": model.Text(""), "Q1_other": model.Text("old lights")},
			want:    []string{"comercial_02"},
		},
		{
			name:    "services always suggests monitoring",
			sector:  model.SectorServices,
			answers: model.AnswerMap{},
			want:    []string{"servicios_01"},
		},
		{
			name:    "unrecognized sector falls back to generic",
			sector:  model.SectorUnrecognized,
			answers: model.AnswerMap{"Q1": model.Text("maquinaria")},
			want:    []string{"general_01"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, suggestionIDs(MapSuggestions(tt.sector, tt.answers, nil)))
		})
	}
}

func TestMapperFailClosed(t *testing.T) {
	m := NewMapper(nil, model.PolicyFailClosed, nil)

	_, err := m.Map(model.SectorUnrecognized, model.AnswerMap{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnrecognizedSector))

	out, err := m.Map(model.SectorServices, model.AnswerMap{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"servicios_01"}, suggestionIDs(out))
}

func TestMapperLogsFallback(t *testing.T) {
	var buf bytes.Buffer
	m := NewMapper(nil, model.PolicyFailOpen, slog.New(slog.NewTextHandler(&buf, nil)))

	out, err := m.Map(model.Sector("mining"), model.AnswerMap{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"general_01"}, suggestionIDs(out))
	assert.Contains(t, buf.String(), "sector=mining")
}

func TestRuleSuggestionDoesNotShareActions(t *testing.T) {
	first := MapSuggestions(model.SectorServices, nil, nil)
	first[0].Actions[0] = "mutated"

	second := MapSuggestions(model.SectorServices, nil, nil)
	assert.NotEqual(t, "mutated", second[0].Actions[0])
}
