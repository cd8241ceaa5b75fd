package articles

type CreateArticleRequest struct {
	Title     string `json:"title" validate:"required,min=3,max=200"`
	Content   string `json:"content" validate:"required,min=10"`
	CoverURL  string `json:"coverUrl,omitempty" validate:"omitempty,url"`
	Published *bool  `json:"published,omitempty"`
}

type UpdateArticleRequest struct {
	Title     *string `json:"title,omitempty" validate:"omitempty,min=3,max=200"`
	Content   *string `json:"content,omitempty" validate:"omitempty,min=10"`
	CoverURL  *string `json:"coverUrl,omitempty" validate:"omitempty,url"`
	Published *bool   `json:"published,omitempty"`
}
