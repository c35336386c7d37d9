package httpdto

type AttachmentInput struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

type PostMessageRequest struct {
	Content     string            `json:"content"`
	ContentType string            `json:"content_type"`
	ReplyTo     string            `json:"reply_to,omitempty"`
	Attachments []AttachmentInput `json:"attachments,omitempty"`
}

type EditMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

type MessagePage struct {
	Messages   any    `json:"messages"`
	NextCursor string `json:"next_cursor,omitempty"`
}
