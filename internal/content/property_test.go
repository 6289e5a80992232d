package content

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/lehmann314159/folio/internal/models"
)

// build derives a varied collection from generated numbers: the value drives
// the view count, publish date, category, status and tags.
func build(values []int) []models.Article {
	out := make([]models.Article, len(values))
	for i, v := range values {
		cat := tech
		if v%3 == 0 {
			cat = life
		}
		status := models.StatusPublished
		if v%5 == 0 {
			status = models.StatusDraft
		}
		a := article(int64(i+1), cat, status)
		if v%2 == 0 {
			a.Tags = []models.TagRef{vue}
		}
		a.ViewCount = v
		a.PublishedAt = time.Unix(int64(v%97)*86400, 0)
		a.Featured = v%7 == 0
		out[i] = a
	}
	return out
}

func queries() gopter.Gen {
	return gen.IntRange(0, 5).Map(func(n int) ArticleQuery {
		switch n {
		case 1:
			return ArticleQuery{Category: "技術"}
		case 2:
			return ArticleQuery{Tag: "Vue"}
		case 3:
			return ArticleQuery{Featured: true}
		case 4:
			return ArticleQuery{Category: "2", Tag: "1"}
		default:
			return ArticleQuery{}
		}
	})
}

func TestPaginationCoversFilteredSetOnce(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("pages partition the filtered set", prop.ForAll(
		func(values []int, pageSize int, q ArticleQuery) bool {
			filtered := Filter(build(values), q)
			_, p := Paginate(filtered, 1, pageSize)
			if p.Total != len(filtered) || p.Pages != (p.Total+pageSize-1)/pageSize {
				return false
			}

			seen := make(map[int64]int)
			var order []int64
			for page := 1; page <= p.Pages; page++ {
				items, _ := Paginate(filtered, page, pageSize)
				for _, a := range items {
					seen[a.ID]++
					order = append(order, a.ID)
				}
			}
			if len(order) != len(filtered) {
				return false
			}
			for i, a := range filtered {
				if seen[a.ID] != 1 || order[i] != a.ID {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(1, 25),
		queries(),
	))

	properties.TestingRun(t)
}

func TestFilterIsIdempotent(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("filtering twice equals filtering once", prop.ForAll(
		func(values []int, q ArticleQuery) bool {
			once := Filter(build(values), q)
			twice := Filter(once, q)
			if len(once) != len(twice) {
				return false
			}
			for i := range once {
				if once[i].ID != twice[i].ID {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
		queries(),
	))

	properties.TestingRun(t)
}

func TestSortOrders(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("popular is ordered by views", prop.ForAll(
		func(values []int, limit int) bool {
			got := Popular(build(values), limit)
			if len(got) > limit {
				return false
			}
			for i := 1; i < len(got); i++ {
				if got[i-1].ViewCount < got[i].ViewCount || got[i].Status != models.StatusPublished {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(1, 50),
	))

	properties.Property("latest is ordered by publish time", prop.ForAll(
		func(values []int, limit int) bool {
			got := Latest(build(values), limit)
			for i := 1; i < len(got); i++ {
				if got[i-1].PublishedAt.Before(got[i].PublishedAt) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 1000)),
		gen.IntRange(1, 50),
	))

	properties.TestingRun(t)
}
