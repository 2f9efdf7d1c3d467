package services

import (
	"strconv"
	"strings"

	"github.com/rpupo63/nexusnews-backend/errs"
)

const MaxPerPage = 100

type Page struct {
	Number  int
	PerPage int
}

// ParsePage reads the page and per_page query values. Blank values take
// page 1 and defaultPerPage; per_page is capped at MaxPerPage.
func ParsePage(page, perPage string, defaultPerPage int) (Page, error) {
	p := Page{Number: 1, PerPage: defaultPerPage}
	if p.PerPage < 1 {
		p.PerPage = 5
	}
	if s := strings.TrimSpace(page); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Page{}, errs.NewInvalidFieldError("page", "must be a positive integer")
		}
		p.Number = n
	}
	if s := strings.TrimSpace(perPage); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return Page{}, errs.NewInvalidFieldError("per_page", "must be a positive integer")
		}
		p.PerPage = n
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p, nil
}

// Paginated is one page of a list plus the totals needed to page through it.
type Paginated[T any] struct {
	Items      []T `json:"items"`
	Total      int `json:"total"`
	Page       int `json:"page"`
	PerPage    int `json:"perPage"`
	TotalPages int `json:"totalPages"`
}

// Paginate slices items for p. A page past the end is empty, not an error.
func Paginate[T any](items []T, p Page) Paginated[T] {
	if p.PerPage < 1 {
		p.PerPage = len(items)
		if p.PerPage == 0 {
			p.PerPage = 1
		}
	}
	if p.Number < 1 {
		p.Number = 1
	}

	total := len(items)
	out := Paginated[T]{
		Items:      []T{},
		Total:      total,
		Page:       p.Number,
		PerPage:    p.PerPage,
		TotalPages: (total + p.PerPage - 1) / p.PerPage,
	}
	start := (p.Number - 1) * p.PerPage
	if start >= total {
		return out
	}
	end := start + p.PerPage
	if end > total {
		end = total
	}
	out.Items = items[start:end]
	return out
}
