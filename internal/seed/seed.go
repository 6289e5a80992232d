// Package seed provides the taxonomy and the generated articles the content
// store starts with.
package seed

import (
	_ "embed"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lehmann314159/folio/internal/models"
)

//go:embed taxonomy.yaml
var taxonomyYAML []byte

type Taxonomy struct {
	Categories []models.Category `yaml:"categories"`
	Tags       []models.Tag      `yaml:"tags"`
}

// LoadTaxonomy decodes the embedded category and tag list.
func LoadTaxonomy() (*Taxonomy, error) {
	var t Taxonomy
	if err := yaml.Unmarshal(taxonomyYAML, &t); err != nil {
		return nil, fmt.Errorf("failed to parse taxonomy: %w", err)
	}
	if len(t.Categories) == 0 || len(t.Tags) == 0 {
		return nil, fmt.Errorf("taxonomy has no categories or tags")
	}
	return &t, nil
}

var (
	words = strings.Fields(`go service cache query router message stream design
		pattern garden coffee travel mountain river journal note review build
		deploy layout color kitchen recipe market lesson reading habit weekend`)
	authors = []string{"林小明", "陳美玲", "王大衛"}
	colors  = []string{"79f2c2", "f2a679", "79a6f2", "d979f2", "f2e279"}
)

// Articles generates n articles with ids 1..n. The same seed always yields
// the same articles.
func Articles(n int, seed uint64, tax *Taxonomy) []models.Article {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	epoch := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	span := int64(2 * 365 * 24 * time.Hour / time.Second)

	out := make([]models.Article, n)
	for i := range out {
		cat := tax.Categories[r.IntN(len(tax.Categories))]
		authorID := r.IntN(len(authors))
		created := epoch.Add(time.Duration(r.Int64N(span)) * time.Second)
		published := created.Add(time.Duration(r.IntN(72)) * time.Hour)

		status := models.StatusPublished
		if r.IntN(2) == 0 {
			status = models.StatusDraft
		}

		out[i] = models.Article{
			ID:      int64(i + 1),
			Title:   sentence(r, 5, 10),
			Content: paragraph(r, 10, 20),
			Excerpt: sentence(r, 20, 50),
			Author: models.AuthorRef{
				ID:     int64(authorID + 1),
				Name:   authors[authorID],
				Avatar: image(r, "100x100", "Avatar"),
			},
			Category:     models.CategoryRef{ID: cat.ID, Name: cat.Name},
			Tags:         pickTags(r, tax.Tags),
			CoverImage:   image(r, "800x400", "Cover"),
			PublishedAt:  published,
			CreatedAt:    created,
			UpdatedAt:    published.Add(time.Duration(r.IntN(240)) * time.Hour),
			ViewCount:    r.IntN(10001),
			LikeCount:    r.IntN(501),
			CommentCount: r.IntN(101),
			Status:       status,
			Featured:     r.IntN(2) == 0,
		}
	}
	return out
}

// pickTags returns 1 to 4 distinct tags.
func pickTags(r *rand.Rand, tags []models.Tag) []models.TagRef {
	n := min(1+r.IntN(4), len(tags))
	out := make([]models.TagRef, 0, n)
	for _, idx := range r.Perm(len(tags))[:n] {
		out = append(out, models.TagRef{ID: tags[idx].ID, Name: tags[idx].Name})
	}
	return out
}

func sentence(r *rand.Rand, minWords, maxWords int) string {
	n := minWords + r.IntN(maxWords-minWords+1)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[r.IntN(len(words))]
	}
	parts[0] = strings.ToUpper(parts[0][:1]) + parts[0][1:]
	return strings.Join(parts, " ") + "."
}

func paragraph(r *rand.Rand, minSentences, maxSentences int) string {
	n := minSentences + r.IntN(maxSentences-minSentences+1)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = sentence(r, 8, 16)
	}
	return strings.Join(parts, " ")
}

func image(r *rand.Rand, size, text string) string {
	return fmt.Sprintf("https://dummyimage.com/%s/%s/FFF.png&text=%s", size, colors[r.IntN(len(colors))], text)
}
