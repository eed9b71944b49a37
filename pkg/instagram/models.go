package instagram

import (
	"time"

	"igfetch/pkg/models"
)

// Wire types for the web profile and GraphQL media endpoints. Only the
// fields the downloader reads are mapped.

type profileResponse struct {
	RequiresToLogin bool   `json:"requires_to_login"`
	Data            data   `json:"data"`
	Status          string `json:"status"`
}

type data struct {
	User user `json:"user"`
}

type user struct {
	ID                       string        `json:"id"`
	Username                 string        `json:"username"`
	IsPrivate                bool          `json:"is_private"`
	FollowedByViewer         bool          `json:"followed_by_viewer"`
	EdgeOwnerToTimelineMedia timelineMedia `json:"edge_owner_to_timeline_media"`
}

type timelineMedia struct {
	Count    int      `json:"count"`
	PageInfo pageInfo `json:"page_info"`
	Edges    []edge   `json:"edges"`
}

type pageInfo struct {
	HasNextPage bool   `json:"has_next_page"`
	EndCursor   string `json:"end_cursor"`
}

type edge struct {
	Node node `json:"node"`
}

type node struct {
	ID               string       `json:"id"`
	Shortcode        string       `json:"shortcode"`
	DisplayURL       string       `json:"display_url"`
	VideoURL         string       `json:"video_url"`
	IsVideo          bool         `json:"is_video"`
	TakenAtTimestamp int64        `json:"taken_at_timestamp"`
	EdgeMediaCaption captionEdges `json:"edge_media_to_caption"`
	EdgeSidecar      *sidecar     `json:"edge_sidecar_to_children,omitempty"`
}

type captionEdges struct {
	Edges []captionEdge `json:"edges"`
}

type captionEdge struct {
	Node captionNode `json:"node"`
}

type captionNode struct {
	Text string `json:"text"`
}

type sidecar struct {
	Edges []edge `json:"edges"`
}

type loginResponse struct {
	Authenticated     bool   `json:"authenticated"`
	User              bool   `json:"user"`
	Status            string `json:"status"`
	TwoFactorRequired bool   `json:"two_factor_required"`
	TwoFactorInfo     struct {
		TwoFactorIdentifier string `json:"two_factor_identifier"`
	} `json:"two_factor_info"`
}

type currentUserResponse struct {
	User struct {
		Username string `json:"username"`
	} `json:"user"`
	Status string `json:"status"`
}

// toAccount converts a profile wire object to the domain type.
func (u user) toAccount() models.Account {
	return models.Account{
		Username:         u.Username,
		ID:               u.ID,
		IsPrivate:        u.IsPrivate,
		FollowedByViewer: u.FollowedByViewer,
		PostCount:        u.EdgeOwnerToTimelineMedia.Count,
	}
}

// toPost converts a timeline node to the domain type. Carousel posts
// expand into one Media per child; plain posts carry a single payload.
func (n node) toPost() models.Post {
	post := models.Post{
		ID:        n.ID,
		Shortcode: n.Shortcode,
		TakenAt:   time.Unix(n.TakenAtTimestamp, 0).UTC(),
	}
	if len(n.EdgeMediaCaption.Edges) > 0 {
		post.Caption = n.EdgeMediaCaption.Edges[0].Node.Text
	}

	if n.EdgeSidecar != nil && len(n.EdgeSidecar.Edges) > 0 {
		for _, child := range n.EdgeSidecar.Edges {
			post.Media = append(post.Media, child.Node.toMedia())
		}
		return post
	}

	post.Media = []models.Media{n.toMedia()}
	return post
}

func (n node) toMedia() models.Media {
	if n.IsVideo && n.VideoURL != "" {
		return models.Media{URL: n.VideoURL, Kind: models.MediaKindVideo, Ext: "mp4"}
	}
	return models.Media{URL: n.DisplayURL, Kind: models.MediaKindImage, Ext: "jpg"}
}

func (tm timelineMedia) toPage() models.Page {
	page := models.Page{
		EndCursor: tm.PageInfo.EndCursor,
		HasMore:   tm.PageInfo.HasNextPage,
	}
	for _, e := range tm.Edges {
		page.Posts = append(page.Posts, e.Node.toPost())
	}
	return page
}
