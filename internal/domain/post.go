package domain

import "fmt"

// Post is one social post from an asset's founder account.
// Corresponds to the posts table; primary key is the source-assigned id.
type Post struct {
	ID        string // source-assigned, unique
	AssetID   string
	CreatedAt int64 // Unix seconds
	Text      string

	// Engagement counters, refreshed on later fetches of the same id.
	Likes       int
	Reposts     int
	Replies     int
	Impressions int
}

// Validate checks required fields and counter non-negativity.
func (p *Post) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("post id is required")
	}
	if p.AssetID == "" {
		return fmt.Errorf("post %s: asset id is required", p.ID)
	}
	if p.CreatedAt <= 0 {
		return fmt.Errorf("post %s: created_at must be positive", p.ID)
	}
	if p.Likes < 0 || p.Reposts < 0 || p.Replies < 0 || p.Impressions < 0 {
		return fmt.Errorf("post %s: negative engagement counter", p.ID)
	}
	return nil
}
