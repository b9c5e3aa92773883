package scoring

import (
	"fmt"

	"github.com/newthinker/folio/internal/core"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// ParseReport decodes a scoring response body.
//
// The portfolio object is walked in document order so the report lists
// symbols as the server sent them. Numbers are parsed from their JSON text
// into decimals and never pass through float64. A body missing either
// contract field, or carrying a non-numeric score, is malformed.
func ParseReport(body []byte) (*core.Report, error) {
	if !gjson.ValidBytes(body) {
		return nil, core.WrapError(core.ErrMalformedResponse, fmt.Errorf("body is not valid JSON"))
	}

	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return nil, core.WrapError(core.ErrMalformedResponse, fmt.Errorf("body is not a JSON object"))
	}

	portfolio := root.Get(PortfolioField)
	if !portfolio.IsObject() {
		return nil, core.WrapError(core.ErrMalformedResponse,
			fmt.Errorf("field %q missing or not an object", PortfolioField))
	}

	avg := root.Get(AverageField)
	if avg.Type != gjson.Number {
		return nil, core.WrapError(core.ErrMalformedResponse,
			fmt.Errorf("field %q missing or not a number", AverageField))
	}
	average, err := decimal.NewFromString(avg.Raw)
	if err != nil {
		return nil, core.WrapError(core.ErrMalformedResponse, fmt.Errorf("parsing %s: %w", AverageField, err))
	}

	report := &core.Report{Scores: []core.Score{}, Average: average}
	index := make(map[string]int)

	var walkErr error
	portfolio.ForEach(func(key, value gjson.Result) bool {
		symbol := key.String()
		if value.Type != gjson.Number {
			walkErr = fmt.Errorf("score for %q is not a number", symbol)
			return false
		}
		score, err := decimal.NewFromString(value.Raw)
		if err != nil {
			walkErr = fmt.Errorf("parsing score for %q: %w", symbol, err)
			return false
		}
		// A repeated key keeps its first position and takes the last value
		if i, ok := index[symbol]; ok {
			report.Scores[i].Value = score
			return true
		}
		index[symbol] = len(report.Scores)
		report.Scores = append(report.Scores, core.Score{Symbol: symbol, Value: score})
		return true
	})
	if walkErr != nil {
		return nil, core.WrapError(core.ErrMalformedResponse, walkErr)
	}

	return report, nil
}
