package media

type CreateMediaRequest struct {
	Type    string `json:"type" validate:"required,oneof=image video"`
	URL     string `json:"url" validate:"required,url"`
	Caption string `json:"caption,omitempty" validate:"max=300"`
}

type UpdateMediaRequest struct {
	Caption *string `json:"caption,omitempty" validate:"omitempty,max=300"`
}

// UploadResult describes a stored blob.
type UploadResult struct {
	URL         string `json:"url"`
	Type        Type   `json:"type"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}
