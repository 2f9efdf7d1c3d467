package models

import "strings"

// Category is static reference data; readers filter the feed by it.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

var categories = []Category{
	{ID: "1", Name: "Technology", Slug: "technology"},
	{ID: "2", Name: "Business", Slug: "business"},
	{ID: "3", Name: "Science", Slug: "science"},
	{ID: "4", Name: "Lifestyle", Slug: "lifestyle"},
	{ID: "5", Name: "World", Slug: "world"},
}

func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func CategoryBySlug(slug string) (Category, bool) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, c := range categories {
		if c.Slug == slug {
			return c, true
		}
	}
	return Category{}, false
}

func CategoryByName(name string) (Category, bool) {
	name = strings.TrimSpace(name)
	for _, c := range categories {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Category{}, false
}

// ResolveCategory accepts either a display name or a slug.
func ResolveCategory(s string) (Category, bool) {
	if c, ok := CategoryByName(s); ok {
		return c, true
	}
	return CategoryBySlug(s)
}

func IsKnownCategory(name string) bool {
	_, ok := ResolveCategory(name)
	return ok
}
