package model

import "time"

// Category is a named grouping referenced by posts.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CategoryRef is a category reference populated with its name only.
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Comment is owned by its Post and has no identity outside it.
type Comment struct {
	ID        string    `json:"id"`
	User      *UserRef  `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Post is the primary content entity.
//
// Category and Author are references, nil when unset. On the write path only
// their ID is meaningful; reads populate Username/Email and Name.
type Post struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Content       string       `json:"content"`
	Excerpt       string       `json:"excerpt,omitempty"`
	FeaturedImage string       `json:"featuredImage,omitempty"`
	Tags          []string     `json:"tags"`
	Slug          string       `json:"slug,omitempty"`
	Category      *CategoryRef `json:"category"`
	Author        *UserRef     `json:"author"`
	Comments      []Comment    `json:"comments"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// CategoryID returns the referenced category id or "".
func (p *Post) CategoryID() string {
	if p.Category == nil {
		return ""
	}
	return p.Category.ID
}

// AuthorID returns the referenced author id or "".
func (p *Post) AuthorID() string {
	if p.Author == nil {
		return ""
	}
	return p.Author.ID
}

// PostInput carries the fields accepted when creating a post.
// Category is an id or a name; an unknown name creates the category.
type PostInput struct {
	Title         string
	Content       string
	Excerpt       string
	FeaturedImage string
	Tags          []string
	Category      string
	Slug          string
}

// PostPatch is a partial update. A nil field is left untouched.
type PostPatch struct {
	Title         *string   `json:"title,omitempty"`
	Content       *string   `json:"content,omitempty"`
	Excerpt       *string   `json:"excerpt,omitempty"`
	FeaturedImage *string   `json:"featuredImage,omitempty"`
	Tags          *[]string `json:"tags,omitempty"`
	Category      *string   `json:"category,omitempty"`
	Slug          *string   `json:"slug,omitempty"`
}
