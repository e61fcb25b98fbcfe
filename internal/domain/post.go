package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const maxTitleLength = 200

type Post struct {
	ID        string    `gorm:"primaryKey;size:36" bson:"_id" json:"id"`
	Title     string    `gorm:"not null" bson:"title" json:"title"`
	Content   string    `gorm:"type:text;not null" bson:"content" json:"content"`
	Tags      []string  `gorm:"serializer:json;type:text" bson:"tags" json:"tags"`
	ImageURL  string    `bson:"imageUrl,omitempty" json:"imageUrl,omitempty"`
	AuthorID  string    `gorm:"index;not null;size:36" bson:"authorId" json:"authorId"`
	CreatedAt time.Time `gorm:"autoCreateTime;index" bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" bson:"updatedAt" json:"updatedAt"`
}

func NewPost(authorID, title, content string, tags []string, imageURL string) (*Post, error) {
	if authorID == "" {
		return nil, fmt.Errorf("%w: post needs an author", ErrInvalidInput)
	}
	post := &Post{ID: uuid.NewString(), AuthorID: authorID}
	if err := post.Update(title, content, tags, imageURL); err != nil {
		return nil, err
	}
	return post, nil
}

func (p *Post) Update(title, content string, tags []string, imageURL string) error {
	title = strings.TrimSpace(title)
	if title == "" || len(title) > maxTitleLength {
		return fmt.Errorf("%w: title must be 1-%d characters", ErrInvalidInput, maxTitleLength)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: content must not be empty", ErrInvalidInput)
	}
	p.Title = title
	p.Content = content
	p.Tags = NormalizeTags(tags)
	p.ImageURL = strings.TrimSpace(imageURL)
	return nil
}

func (p *Post) CanBeModifiedBy(userID string, role Role) bool {
	return role == RoleAdmin || (userID != "" && p.AuthorID == userID)
}

// NormalizeTags trims, lower-cases and deduplicates tags keeping first-seen order.
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
