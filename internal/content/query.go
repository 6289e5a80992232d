package content

import (
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/lehmann314159/folio/internal/models"
	"github.com/lehmann314159/folio/internal/validate"
)

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	DefaultLimit    = 5
	MaxPage         = 1_000_000
	MaxPageSize     = 100
	MaxLimit        = 50
)

// ArticleQuery is the parsed form of the article list parameters. Category and
// Tag match either a name or a numeric id.
type ArticleQuery struct {
	Page     int    `json:"page" validate:"min=1,max=1000000"`
	PageSize int    `json:"pageSize" validate:"min=1,max=100"`
	Category string `json:"category"`
	Tag      string `json:"tag"`
	Search   string `json:"search"`
	Featured bool   `json:"featured"`
}

var queryValidator = validate.New()

// ParseArticleQuery coerces the raw query string. Malformed numbers are
// rejected instead of being carried into the pagination arithmetic.
func ParseArticleQuery(v url.Values) (ArticleQuery, error) {
	q := ArticleQuery{
		Page:     DefaultPage,
		PageSize: DefaultPageSize,
		Category: v.Get("category"),
		Tag:      v.Get("tag"),
		Search:   v.Get("search"),
	}

	var err error
	if q.Page, err = intParam(v, "page", DefaultPage); err != nil {
		return ArticleQuery{}, err
	}
	if q.PageSize, err = intParam(v, "pageSize", DefaultPageSize); err != nil {
		return ArticleQuery{}, err
	}
	if s := v.Get("featured"); s != "" {
		b, perr := strconv.ParseBool(s)
		if perr != nil {
			return ArticleQuery{}, validate.Field("featured", "featured must be true or false")
		}
		q.Featured = b
	}

	if err := queryValidator.Struct(q); err != nil {
		return ArticleQuery{}, err
	}
	return q, nil
}

// ParseLimit reads the limit parameter of the popular and latest listings.
func ParseLimit(v url.Values) (int, error) {
	limit, err := intParam(v, "limit", DefaultLimit)
	if err != nil {
		return 0, err
	}
	if limit < 1 || limit > MaxLimit {
		return 0, validate.Field("limit", "limit must be between 1 and "+strconv.Itoa(MaxLimit))
	}
	return limit, nil
}

func intParam(v url.Values, name string, def int) (int, error) {
	s := strings.TrimSpace(v.Get(name))
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, validate.Field(name, name+" must be an integer")
	}
	return n, nil
}

// Filter returns the published items matching every predicate in q.
func Filter(items []models.Article, q ArticleQuery) []models.Article {
	out := make([]models.Article, 0, len(items))
	for _, a := range items {
		if q.Category != "" && !matchesCategory(a, q.Category) {
			continue
		}
		if q.Tag != "" && !matchesTag(a, q.Tag) {
			continue
		}
		if q.Search != "" && !matchesSearch(a, q.Search) {
			continue
		}
		if q.Featured && !a.Featured {
			continue
		}
		if a.Status != models.StatusPublished {
			continue
		}
		out = append(out, a)
	}
	return out
}

func matchesCategory(a models.Article, category string) bool {
	if a.Category.Name == category {
		return true
	}
	id, ok := parseID(category)
	return ok && a.Category.ID == id
}

func matchesTag(a models.Article, tag string) bool {
	id, isID := parseID(tag)
	for _, t := range a.Tags {
		if t.Name == tag || (isID && t.ID == id) {
			return true
		}
	}
	return false
}

// case-sensitive
func matchesSearch(a models.Article, s string) bool {
	return strings.Contains(a.Title, s) ||
		strings.Contains(a.Content, s) ||
		strings.Contains(a.Excerpt, s)
}

func parseID(s string) (int64, bool) {
	id, err := strconv.ParseInt(s, 10, 64)
	return id, err == nil
}

// Paginate slices one page out of items. Pages past the end are empty.
func Paginate(items []models.Article, page, pageSize int) ([]models.Article, models.Pagination) {
	total := len(items)
	p := models.Pagination{
		Current:  page,
		PageSize: pageSize,
		Total:    total,
		Pages:    (total + pageSize - 1) / pageSize,
	}

	// Compare page numbers before multiplying so a huge page cannot overflow.
	if page < 1 || total == 0 || page-1 > (total-1)/pageSize {
		return []models.Article{}, p
	}
	start := (page - 1) * pageSize
	end := min(start+pageSize, total)
	return items[start:end], p
}

// Popular returns up to limit published items by view count, highest first.
func Popular(items []models.Article, limit int) []models.Article {
	out := published(items)
	slices.SortStableFunc(out, func(a, b models.Article) int {
		return b.ViewCount - a.ViewCount
	})
	return head(out, limit)
}

// Latest returns up to limit published items by publish time, newest first.
func Latest(items []models.Article, limit int) []models.Article {
	out := published(items)
	slices.SortStableFunc(out, func(a, b models.Article) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})
	return head(out, limit)
}

func published(items []models.Article) []models.Article {
	out := make([]models.Article, 0, len(items))
	for _, a := range items {
		if a.Status == models.StatusPublished {
			out = append(out, a)
		}
	}
	return out
}

func head(items []models.Article, limit int) []models.Article {
	if limit < len(items) {
		return items[:limit]
	}
	return items
}
