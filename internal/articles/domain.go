package articles

import "time"

// Article is a published or draft blog post.
type Article struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	CoverURL  string    `json:"coverUrl,omitempty"`
	Published bool      `json:"published"`
	AuthorID  string    `json:"authorId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NewArticle holds the values stored for a new article.
type NewArticle struct {
	Title     string
	Slug      string
	Content   string
	CoverURL  string
	Published bool
	AuthorID  string
}

// Changes lists the columns to update; nil fields are left untouched.
type Changes struct {
	Title     *string
	Content   *string
	CoverURL  *string
	Published *bool
}

// ListFilter narrows an article listing.
type ListFilter struct {
	IncludeDrafts bool
	Limit         int
	Offset        int
}
