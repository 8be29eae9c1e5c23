package domain

import "time"

// CustomInstruction is a user-authored snippet injected into the prompt.
type CustomInstruction struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	BrandID   string    `json:"brand_id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type FeaturedImage struct {
	Mode   FeaturedImageMode `json:"mode"`
	Prompt string            `json:"prompt,omitempty"`
	Source string            `json:"source,omitempty"`
}

// Article is one generated piece of content.
type Article struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"session_id"`
	TopicID       string         `json:"topic_id"`
	UserID        string         `json:"user_id"`
	BrandID       string         `json:"brand_id"`
	Title         string         `json:"title"`
	Excerpt       string         `json:"excerpt"`
	Markdown      string         `json:"markdown"`
	HTML          string         `json:"html"`
	WordCount     int            `json:"word_count"`
	FeaturedImage *FeaturedImage `json:"featured_image,omitempty"`
	ModelID       string         `json:"model_id"`
	UsedFallback  bool           `json:"used_fallback"`
	CreatedAt     time.Time      `json:"created_at"`
}

type ArticleListFilter struct {
	UserID    string
	BrandID   string
	SessionID string
}

// WordPressIntegration holds per-brand CMS credentials. The application
// password is stored sealed.
type WordPressIntegration struct {
	BrandID        string    `json:"brand_id"`
	SiteURL        string    `json:"site_url"`
	Username       string    `json:"username"`
	SealedPassword string    `json:"-"`
	Connected      bool      `json:"connected"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PostMetadata is the publish metadata of a remote CMS post.
type PostMetadata struct {
	ID       int64     `json:"id"`
	Title    string    `json:"title"`
	Status   string    `json:"status"`
	Date     time.Time `json:"date"`
	Modified time.Time `json:"modified"`
	Link     string    `json:"link"`
}
