package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validQuery() Query {
	return Query{
		Companies:    []string{"600000.SH"},
		Mode:         ModeQuarter,
		StartYear:    2022,
		EndYear:      2023,
		StartQuarter: 3,
		EndQuarter:   2,
	}
}

func TestQuery_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *Query)
		wantErr string
	}{
		{name: "valid", mutate: func(q *Query) {}},
		{name: "annual without quarters", mutate: func(q *Query) {
			q.Mode = ModeYear
			q.StartQuarter, q.EndQuarter = 0, 0
		}},
		{name: "no companies", mutate: func(q *Query) { q.Companies = nil }, wantErr: "Companies must be at least 1"},
		{name: "too many companies", mutate: func(q *Query) {
			q.Companies = strings.Split("A,B,C,D,E,F,G,H,I,J,K", ",")
		}, wantErr: "Companies must be at most 10"},
		{name: "bad mode", mutate: func(q *Query) { q.Mode = "month" }, wantErr: "Mode must be one of"},
		{name: "reversed years", mutate: func(q *Query) { q.StartYear = 2024 }, wantErr: "EndYear must not be before StartYear"},
		{name: "quarter out of range", mutate: func(q *Query) { q.EndQuarter = 5 }, wantErr: "EndQuarter must be at most 4"},
		{name: "quarter mode missing quarter", mutate: func(q *Query) { q.StartQuarter = 0 }, wantErr: "requires start_quarter"},
		{name: "reversed quarters same year", mutate: func(q *Query) {
			q.StartYear, q.EndYear = 2023, 2023
			q.StartQuarter, q.EndQuarter = 3, 1
		}, wantErr: "start_quarter must not be after end_quarter"},
		{name: "long filename", mutate: func(q *Query) { q.Filename = strings.Repeat("x", 61) }, wantErr: "Filename must be at most 60"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := validQuery()
			tt.mutate(&q)
			err := q.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestQuery_Normalize(t *testing.T) {
	q := Query{
		Companies:    []string{" 600000.sh", "600000.SH", "", "000001.sz "},
		Mode:         " YEAR ",
		StartQuarter: 1,
		EndQuarter:   2,
		Filename:     "  report ",
	}
	q.Normalize()

	assert.Equal(t, []string{"600000.SH", "000001.SZ"}, q.Companies)
	assert.Equal(t, ModeYear, q.Mode)
	assert.Equal(t, 4, q.StartQuarter)
	assert.Equal(t, 4, q.EndQuarter)
	assert.Equal(t, "report", q.Filename)
}

func TestQuery_NormalizeCopiesCompanies(t *testing.T) {
	companies := []string{"a", "a", "b"}
	q := Query{Companies: companies, Mode: ModeYear}
	q.Normalize()

	assert.Equal(t, []string{"A", "B"}, q.Companies)
	assert.Equal(t, []string{"a", "a", "b"}, companies)
}

func TestNotFoundError(t *testing.T) {
	assert.Equal(t, "no financial data found for 600000.SH",
		(&NotFoundError{Companies: []string{"600000.SH"}}).Error())
	assert.Equal(t, "no financial data found for A, B",
		(&NotFoundError{Companies: []string{"A", "B"}}).Error())
}
