package item

import (
	"time"
)

type ID = int64

// Kind is the concrete variant of a content item.
type Kind string

const (
	KindPost    Kind = "post"
	KindProject Kind = "project"
	KindComment Kind = "comment"
)

// Action is the rate-limited action a content item creation counts against.
type Action string

const (
	ActionPost    Action = "post"
	ActionProject Action = "project"
	ActionComment Action = "comment"
)

// Action returns the rate limit bucket for creating an item of this kind.
func (k Kind) Action() Action {
	switch k {
	case KindProject:
		return ActionProject
	case KindComment:
		return ActionComment
	default:
		return ActionPost
	}
}

const (
	DefaultAuthor   = "익명코더"
	DefaultCategory = "free"
	CategoryInfo    = "info"
)

// Item is an anonymously authored post, project or comment.
type Item struct {
	ID        ID        `db:"id" json:"id"`
	Kind      Kind      `db:"kind" json:"kind"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	Slug      string    `db:"slug" json:"slug,omitempty"`
	Title     string    `db:"title" json:"title,omitempty"`
	Body      string    `db:"body" json:"body"`
	Rendered  string    `db:"rendered" json:"rendered,omitempty"`

	// post
	Category string `db:"category" json:"category,omitempty"`
	Tags     string `db:"tags" json:"tags,omitempty"`

	// project
	TechStack  string `db:"tech_stack" json:"-"`
	DemoURL    string `db:"demo_url" json:"demo_url,omitempty"`
	GithubURL  string `db:"github_url" json:"github_url,omitempty"`
	Thumbnail  string `db:"thumbnail" json:"thumbnail,omitempty"`
	IsFeatured bool   `db:"is_featured" json:"is_featured,omitempty"`

	// comment
	ParentKind Kind `db:"parent_kind" json:"parent_kind,omitempty"`
	ParentID   ID   `db:"parent_id" json:"parent_id,omitempty"`

	AuthorName     string `db:"author_name" json:"author_name"`
	CredentialHash string `db:"credential_hash" json:"-"`
	SessionToken   string `db:"session_token" json:"-"`
	ClientIP       string `db:"client_ip" json:"-"`

	IsSpam    bool `db:"is_spam" json:"-"`
	IsDeleted bool `db:"is_deleted" json:"-"`
	ViewCount int  `db:"view_count" json:"view_count"`
	Likes     int  `db:"likes" json:"likes"`
}

type List []Item

// Visible reports whether the item may appear in public listings.
func (it *Item) Visible() bool {
	return !it.IsSpam && !it.IsDeleted
}

// HasCredential reports whether the author set a password.
func (it *Item) HasCredential() bool {
	return it.CredentialHash != ""
}

// Query selects visible items for a listing. Results are ordered by creation time,
// newest first, unless OldestFirst is set.
type Query struct {
	Kind       Kind
	Category   string
	ParentKind Kind
	ParentID   ID
	// FeaturedFirst puts featured projects ahead of the rest.
	FeaturedFirst bool
	OldestFirst   bool
	Limit         int
	Offset        int
}

// Matches reports whether it is visible and satisfies the query filters.
func (q Query) Matches(it *Item) bool {
	if !it.Visible() || it.Kind != q.Kind {
		return false
	}
	if q.Category != "" && it.Category != q.Category {
		return false
	}
	if q.ParentID != 0 && (it.ParentKind != q.ParentKind || it.ParentID != q.ParentID) {
		return false
	}
	return true
}

// RateLimitRecord is a single accepted action in the rate limit ledger.
type RateLimitRecord struct {
	IPAddress string    `db:"ip_address"`
	Action    Action    `db:"action"`
	CreatedAt time.Time `db:"created_at"`
}

// Stats are the public content counters.
type Stats struct {
	Posts    int `db:"posts" json:"posts"`
	Projects int `db:"projects" json:"projects"`
	Comments int `db:"comments" json:"comments"`
	Views    int `db:"views" json:"total_views"`
}
