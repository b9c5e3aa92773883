package scoring

import (
	"errors"
	"testing"

	"github.com/newthinker/folio/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReport_PreservesServerOrder(t *testing.T) {
	body := []byte(`{"average_health_score": 70, "portfolio": {"TSLA": 67, "AAPL": 82, "BTC": 61}}`)

	report, err := ParseReport(body)
	require.NoError(t, err)
	assert.Equal(t, []string{"TSLA", "AAPL", "BTC"}, report.Symbols())
}

func TestParseReport_KeepsNumbersVerbatim(t *testing.T) {
	body := []byte(`{"portfolio": {"AAPL": 82.125, "TSLA": 0.1}, "average_health_score": 41.1125}`)

	report, err := ParseReport(body)
	require.NoError(t, err)
	assert.Equal(t, "82.125", report.Scores[0].Value.String())
	assert.Equal(t, "0.1", report.Scores[1].Value.String())
	assert.Equal(t, "41.1125", report.Average.String())
}

func TestParseReport_EmptyPortfolio(t *testing.T) {
	report, err := ParseReport([]byte(`{"portfolio": {}, "average_health_score": 0}`))
	require.NoError(t, err)
	assert.NotNil(t, report.Scores)
	assert.Empty(t, report.Scores)
	assert.True(t, report.Average.IsZero())
}

func TestParseReport_ExtraFieldsIgnored(t *testing.T) {
	body := []byte(`{"portfolio": {"AAPL": 82}, "average_health_score": 82, "generated_at": "2024-01-01"}`)

	report, err := ParseReport(body)
	require.NoError(t, err)
	assert.Len(t, report.Scores, 1)
}

func TestParseReport_DuplicateSymbol(t *testing.T) {
	body := []byte(`{"portfolio": {"AAPL": 10, "TSLA": 20, "AAPL": 30}, "average_health_score": 25}`)

	report, err := ParseReport(body)
	require.NoError(t, err)
	require.Len(t, report.Scores, 2)
	assert.Equal(t, "AAPL", report.Scores[0].Symbol)
	assert.Equal(t, "30", report.Scores[0].Value.String())
}

func TestParseReport_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{"portfolio": `},
		{"array body", `[1, 2]`},
		{"missing portfolio", `{"average_health_score": 1}`},
		{"missing average", `{"portfolio": {"AAPL": 1}}`},
		{"null average", `{"portfolio": {}, "average_health_score": null}`},
		{"portfolio is array", `{"portfolio": [82], "average_health_score": 82}`},
		{"string average", `{"portfolio": {}, "average_health_score": "74.5"}`},
		{"string score", `{"portfolio": {"AAPL": "82"}, "average_health_score": 82}`},
		{"null score", `{"portfolio": {"AAPL": null}, "average_health_score": 0}`},
		{"empty body", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := ParseReport([]byte(tt.body))
			assert.Nil(t, report)
			assert.True(t, errors.Is(err, core.ErrMalformedResponse), "got %v", err)
		})
	}
}
