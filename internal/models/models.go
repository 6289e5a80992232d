package models

import "time"

type Status string

const (
	StatusPublished Status = "published"
	StatusDraft     Status = "draft"
)

type AuthorRef struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type CategoryRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type TagRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Article struct {
	ID           int64       `json:"id"`
	Title        string      `json:"title"`
	Content      string      `json:"content"`
	Excerpt      string      `json:"excerpt"`
	Author       AuthorRef   `json:"author"`
	Category     CategoryRef `json:"category"`
	Tags         []TagRef    `json:"tags"`
	CoverImage   string      `json:"coverImage"`
	PublishedAt  time.Time   `json:"publishedAt"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    time.Time   `json:"updatedAt"`
	ViewCount    int         `json:"viewCount"`
	LikeCount    int         `json:"likeCount"`
	CommentCount int         `json:"commentCount"`
	Status       Status      `json:"status"`
	Featured     bool        `json:"featured"`
}

// Clone returns a copy that shares no slices with a.
func (a Article) Clone() Article {
	c := a
	c.Tags = append([]TagRef(nil), a.Tags...)
	return c
}

type Category struct {
	ID           int64  `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Slug         string `json:"slug" yaml:"slug"`
	ArticleCount int    `json:"articleCount" yaml:"articleCount"` // static annotation, not recomputed
}

type Tag struct {
	ID           int64  `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Slug         string `json:"slug" yaml:"slug"`
	ArticleCount int    `json:"articleCount" yaml:"articleCount"` // static annotation, not recomputed
}

type Pagination struct {
	Current  int `json:"current"`
	PageSize int `json:"pageSize"`
	Total    int `json:"total"`
	Pages    int `json:"pages"`
}

type ArticlePage struct {
	Articles   []Article  `json:"articles"`
	Pagination Pagination `json:"pagination"`
}

type Message struct {
	ID          string    `json:"id"`
	ClientToken string    `json:"clientToken,omitempty"`
	UserID      string    `json:"userId"`
	UserName    string    `json:"userName"`
	UserEmail   string    `json:"userEmail,omitempty"`
	UserAvatar  string    `json:"userAvatar,omitempty"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdAt"`
}

type MessageInput struct {
	UserID      string `json:"userId" validate:"required,max=128"`
	UserName    string `json:"userName" validate:"required,max=64"`
	UserEmail   string `json:"userEmail,omitempty" validate:"omitempty,email"`
	UserAvatar  string `json:"userAvatar,omitempty" validate:"omitempty,url"`
	Content     string `json:"content" validate:"required,max=1000"`
	ClientToken string `json:"clientToken,omitempty" validate:"max=128"`
}

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Avatar       string    `json:"avatar"`
	Role         Role      `json:"role"`
	Provider     string    `json:"provider"`
	CreatedAt    time.Time `json:"createdAt"`
	PasswordHash string    `json:"-"`
}
