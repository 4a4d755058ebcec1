package model

import "fmt"

// Period identifies one fiscal reporting interval. Quarter 4 doubles as the
// annual figure. A zero Year or Quarter means unknown.
type Period struct {
	Year    int `json:"year" yaml:"year"`
	Quarter int `json:"quarter" yaml:"quarter"`
}

// Annual returns the annual period for a year.
func Annual(year int) Period {
	return Period{Year: year, Quarter: 4}
}

// Known reports whether both year and quarter are set.
func (p Period) Known() bool {
	return p.Year > 0 && p.Quarter >= 1 && p.Quarter <= 4
}

func (p Period) String() string {
	return fmt.Sprintf("%dQ%d", p.Year, p.Quarter)
}
