package model

import (
	"fmt"
	"strings"
)

// NotFoundError reports companies for which no requested period carried data.
type NotFoundError struct {
	Companies []string
}

func (e *NotFoundError) Error() string {
	if len(e.Companies) == 1 {
		return fmt.Sprintf("no financial data found for %s", e.Companies[0])
	}
	return fmt.Sprintf("no financial data found for %s", strings.Join(e.Companies, ", "))
}

// ValidationError lists the problems with a request.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "invalid request: " + strings.Join(e.Problems, "; ")
}
