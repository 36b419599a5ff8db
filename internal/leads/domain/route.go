package domain

import (
	"fmt"
	"strings"
)

// Route is an academic handling track a lead can be sent to.
type Route string

const (
	RouteUndergraduate Route = "undergraduate_counselor"
	RouteGraduate      Route = "graduate_counselor"
	RouteSpecialized   Route = "specialized_department"
	RouteSenior        Route = "senior_counselor"
)

var Routes = []Route{RouteUndergraduate, RouteGraduate, RouteSpecialized, RouteSenior}

func ParseRoute(raw string) (Route, error) {
	candidate := Route(strings.ToLower(strings.TrimSpace(raw)))
	for _, r := range Routes {
		if r == candidate {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRoute, raw)
}

// Label is the route with underscores replaced by spaces.
func (r Route) Label() string {
	return strings.ReplaceAll(string(r), "_", " ")
}

// Title is Label with each word capitalised.
func (r Route) Title() string {
	words := strings.Fields(r.Label())
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
