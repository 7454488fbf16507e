// Package catalog holds the internship listings, the notification feed and
// the candidate's job preferences that surround the profile store.
package catalog

import (
	"cmp"
	"slices"
)

// Internship is one listing in the recommendation catalog.
type Internship struct {
	ID              string   `json:"id" yaml:"id"`
	Company         string   `json:"company" yaml:"company"`
	Position        string   `json:"position" yaml:"position"`
	Location        string   `json:"location" yaml:"location"`
	MatchPercentage int      `json:"matchPercentage" yaml:"matchPercentage"`
	Requirements    []string `json:"requirements" yaml:"requirements"`
	Description     string   `json:"description" yaml:"description"`
	Duration        string   `json:"duration" yaml:"duration"`
	IsNew           bool     `json:"isNew" yaml:"isNew"`
}

// Filter narrows Catalog.List. The zero value matches everything.
type Filter struct {
	NewOnly  bool
	MinMatch int
}

// Catalog is a fixed, read-only set of internships.
type Catalog struct {
	items []Internship
}

// NewCatalog returns a catalog over items. items is copied.
func NewCatalog(items []Internship) *Catalog {
	c := &Catalog{items: make([]Internship, len(items))}
	for i, it := range items {
		c.items[i] = it.clone()
	}
	return c
}

// Default returns the built-in internship listings.
func Default() *Catalog {
	return NewCatalog(defaultInternships)
}

// List returns the internships matching f, best match first. Ties keep
// catalog order.
func (c *Catalog) List(f Filter) []Internship {
	out := make([]Internship, 0, len(c.items))
	for _, it := range c.items {
		if f.NewOnly && !it.IsNew {
			continue
		}
		if it.MatchPercentage < f.MinMatch {
			continue
		}
		out = append(out, it.clone())
	}
	slices.SortStableFunc(out, func(a, b Internship) int {
		return cmp.Compare(b.MatchPercentage, a.MatchPercentage)
	})
	return out
}

// Get returns the internship with the given id.
func (c *Catalog) Get(id string) (Internship, bool) {
	for _, it := range c.items {
		if it.ID == id {
			return it.clone(), true
		}
	}
	return Internship{}, false
}

func (it Internship) clone() Internship {
	it.Requirements = slices.Clone(it.Requirements)
	return it
}

var defaultInternships = []Internship{
	{
		ID:              "1",
		Company:         "Google",
		Position:        "Product Manager Intern",
		Location:        "Mountain View, CA",
		MatchPercentage: 95,
		Requirements:    []string{"Product Strategy", "Data Analysis", "User Research"},
		Description:     "Join Google's Product team to work on consumer-facing products used by billions of users worldwide.",
		Duration:        "12 weeks",
		IsNew:           true,
	},
	{
		ID:              "2",
		Company:         "Microsoft",
		Position:        "PM Intern - Azure Products",
		Location:        "Seattle, WA",
		MatchPercentage: 87,
		Requirements:    []string{"Cloud Technologies", "Product Management", "Technical Writing"},
		Description:     "Work with the Azure team to develop and improve cloud infrastructure products for enterprise clients.",
		Duration:        "10 weeks",
		IsNew:           true,
	},
	{
		ID:              "3",
		Company:         "Airbnb",
		Position:        "Product Management Intern",
		Location:        "San Francisco, CA",
		MatchPercentage: 82,
		Requirements:    []string{"Design Thinking", "Market Research", "Analytics"},
		Description:     "Help shape the future of travel by working on innovative features for our platform.",
		Duration:        "14 weeks",
		IsNew:           false,
	},
}
