package reddit

import "encoding/json"

// listingResponse is the envelope of GET /r/<sub>/new.
type listingResponse struct {
	Data struct {
		After    string         `json:"after"`
		Children []listingChild `json:"children"`
	} `json:"data"`
}

type listingChild struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// post carries the listing fields the pipeline cares about. The raw child
// payload is archived separately, so unknown fields are simply ignored here.
type post struct {
	ID                  string  `json:"id"`
	Name                string  `json:"name"` // fullname, e.g. "t3_abc123"
	Subreddit           string  `json:"subreddit"`
	Author              string  `json:"author"`
	CreatedUTC          float64 `json:"created_utc"`
	Title               string  `json:"title"`
	Selftext            string  `json:"selftext"`
	URL                 string  `json:"url"`
	URLOverriddenByDest string  `json:"url_overridden_by_dest"`
	Score               int     `json:"score"`
	NumComments         int     `json:"num_comments"`
	IsVideo             bool    `json:"is_video"`
	IsGallery           bool    `json:"is_gallery"`

	MediaMetadata map[string]galleryMedia `json:"media_metadata"`
	SecureMedia   *secureMedia            `json:"secure_media"`
	Preview       *preview                `json:"preview"`
}

// galleryMedia is one entry of media_metadata on gallery posts. "s" is the
// source rendition, "p" the preview renditions by ascending size.
type galleryMedia struct {
	Source   *galleryImage  `json:"s"`
	Previews []galleryImage `json:"p"`
}

type galleryImage struct {
	URL   string `json:"u"`
	Width int    `json:"x"`
}

type secureMedia struct {
	RedditVideo *redditVideo `json:"reddit_video"`
}

type redditVideo struct {
	FallbackURL string `json:"fallback_url"`
}

type preview struct {
	Images []previewImage `json:"images"`
}

type previewImage struct {
	Source *previewSource `json:"source"`
}

type previewSource struct {
	URL string `json:"url"`
}
