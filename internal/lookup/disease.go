package lookup

import (
	"strings"

	"github.com/i474232898/incidence-forecast/internal/common"
)

// Category is a canonical disease name from the controlled vocabulary.
type Category string

const (
	Covid        Category = "covid"
	Dengue       Category = "dengue"
	Influenza    Category = "influenza"
	Malaria      Category = "malaria"
	Tuberculosis Category = "tuberculosis"
	Measles      Category = "measles"
	Cholera      Category = "cholera"
)

// vocabulary is checked in order; the first category whose term appears in
// the input wins.
var vocabulary = []struct {
	category Category
	terms    []string
}{
	{Covid, []string{"covid", "corona", "sars-cov-2"}},
	{Dengue, []string{"dengue"}},
	{Influenza, []string{"influenza", "flu"}},
	{Malaria, []string{"malaria"}},
	{Tuberculosis, []string{"tuberculosis"}},
	{Measles, []string{"measles"}},
	{Cholera, []string{"cholera"}},
}

// liveTrackable lists categories a live API can serve.
var liveTrackable = map[Category]bool{
	Covid: true,
}

// DiseaseCategory matches free text against the vocabulary. ok is false when
// nothing matches.
func DiseaseCategory(disease string) (Category, bool) {
	s := strings.ToLower(strings.TrimSpace(disease))
	if s == "" {
		return "", false
	}
	for _, v := range vocabulary {
		if common.HasAny(s, v.terms...) {
			return v.category, true
		}
	}
	// "tb" is too short for substring matching.
	for _, f := range strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == '-' || r == '_' }) {
		if f == "tb" {
			return Tuberculosis, true
		}
	}
	return "", false
}

// LiveTrackable reports whether the live adapter covers the category.
func LiveTrackable(c Category) bool {
	return liveTrackable[c]
}

// Categories returns the vocabulary in match order.
func Categories() []Category {
	out := make([]Category, len(vocabulary))
	for i, v := range vocabulary {
		out[i] = v.category
	}
	return out
}

// Terms returns the match terms for a category.
func Terms(c Category) []string {
	for _, v := range vocabulary {
		if v.category == c {
			return append([]string(nil), v.terms...)
		}
	}
	return nil
}
