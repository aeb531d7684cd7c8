// Package content holds the campaign content model shared by the timeline engine,
// the metrics coordinator and the schedule collaborators.
package content

import "strings"

// Status is the normalized lifecycle state of a scheduled content item.
type Status string

const (
	StatusCompleted  Status = "completed"
	StatusInProgress Status = "in-progress"
	StatusPending    Status = "pending"
)

// NormalizeStatus folds upstream statuses into the three the planner understands.
// Anything else (cancelled, overdue, empty) becomes pending.
func NormalizeStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed":
		return StatusCompleted
	case "in-progress", "in_progress":
		return StatusInProgress
	default:
		return StatusPending
	}
}

// Platform is a social platform identifier, always lower case.
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformYouTube   Platform = "youtube"
	PlatformFacebook  Platform = "facebook"
	PlatformTwitter   Platform = "twitter"
	PlatformTwitch    Platform = "twitch"
)

// ContentType is a platform dependent content format ("reel", "story", "short"...).
type ContentType string

// Assignee is the influencer responsible for a content item.
type Assignee struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Handle   string `json:"handle"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Objective is a measurable target attached to a content item.
type Objective struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	Target          string  `json:"target"`
	Current         string  `json:"current"`
	Status          string  `json:"status"`
	PercentComplete float64 `json:"percentComplete"`
}

// Item is a scheduled piece of content. StartDate and EndDate keep the raw
// YYYY-MM-DD calendar strings; the timeline engine parses them and drops
// items whose dates do not parse.
type Item struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	ContentURL  string      `json:"contentUrl,omitempty"`
	Assignee    Assignee    `json:"assignee"`
	StartDate   string      `json:"startDate"`
	EndDate     string      `json:"endDate"`
	Platform    Platform    `json:"platform"`
	ContentType ContentType `json:"contentType"`
	Status      Status      `json:"status"`
	Objectives  []Objective `json:"objectives"`
}

// HasContentURL reports whether the item points at published external content.
func (i Item) HasContentURL() bool {
	return strings.TrimSpace(i.ContentURL) != ""
}

// Metrics is the engagement snapshot of a published content item.
type Metrics struct {
	ContentID      string  `json:"contentId"`
	Views          int64   `json:"views"`
	Likes          int64   `json:"likes"`
	Comments       int64   `json:"comments"`
	Shares         int64   `json:"shares"`
	EngagementRate float64 `json:"engagementRate"`
}
