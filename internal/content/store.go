// Package content holds the in-memory article collection and the query,
// view and like operations over it.
package content

import (
	"errors"
	"sync"

	"github.com/lehmann314159/folio/internal/models"
)

var ErrNotFound = errors.New("article not found")

// Store owns the article collection for the life of the process. Items are
// never removed; only their counters change.
type Store struct {
	mu         sync.RWMutex
	articles   []models.Article
	categories []models.Category
	tags       []models.Tag
}

func NewStore(articles []models.Article, categories []models.Category, tags []models.Tag) *Store {
	s := &Store{
		articles:   make([]models.Article, len(articles)),
		categories: append([]models.Category(nil), categories...),
		tags:       append([]models.Tag(nil), tags...),
	}
	for i, a := range articles {
		s.articles[i] = a.Clone()
	}
	return s
}

// List filters and paginates the published articles.
func (s *Store) List(q ArticleQuery) models.ArticlePage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items, p := Paginate(Filter(s.articles, q), q.Page, q.PageSize)
	return models.ArticlePage{Articles: cloneAll(items), Pagination: p}
}

// Get returns the article with the given id and counts the read as a view.
func (s *Store) Get(id int64) (models.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.find(id)
	if a == nil {
		return models.Article{}, ErrNotFound
	}
	a.ViewCount++
	return a.Clone(), nil
}

func (s *Store) Popular(limit int) []models.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(Popular(s.articles, limit))
}

func (s *Store) Latest(limit int) []models.Article {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(Latest(s.articles, limit))
}

func (s *Store) Categories() []models.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Category(nil), s.categories...)
}

func (s *Store) Tags() []models.Tag {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Tag(nil), s.tags...)
}

// Len reports how many articles the store holds, drafts included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.articles)
}

// find must be called with s.mu held.
func (s *Store) find(id int64) *models.Article {
	for i := range s.articles {
		if s.articles[i].ID == id {
			return &s.articles[i]
		}
	}
	return nil
}

func cloneAll(items []models.Article) []models.Article {
	out := make([]models.Article, len(items))
	for i, a := range items {
		out[i] = a.Clone()
	}
	return out
}
