package reddit

import (
	"net/url"
	"path"
	"strings"
)

var directMediaExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".mp4":  true,
	".webm": true,
}

// extractMediaURL picks the best downloadable URL for a post, in the order
// the listing payload makes them trustworthy: gallery source, hosted video,
// preview image, then the post's own link.
func extractMediaURL(p *post) string {
	if p.IsGallery && len(p.MediaMetadata) > 0 {
		if u := galleryURL(p.MediaMetadata); u != "" {
			return normalizeMediaURL(u)
		}
	}

	if p.IsVideo && p.SecureMedia != nil && p.SecureMedia.RedditVideo != nil {
		if u := p.SecureMedia.RedditVideo.FallbackURL; u != "" {
			return normalizeMediaURL(u)
		}
	}

	if p.Preview != nil && len(p.Preview.Images) > 0 {
		img := p.Preview.Images[0]
		if img.Source != nil && img.Source.URL != "" {
			return normalizeMediaURL(img.Source.URL)
		}
	}

	// The post link itself, but only when it points at actual media.
	// Self posts link back to their own comment page.
	link := p.URL
	if p.URLOverriddenByDest != "" {
		link = p.URLOverriddenByDest
	}
	if u := normalizeMediaURL(link); isLikelyMedia(u) {
		return u
	}
	return ""
}

// isLikelyMedia reports whether a normalized URL points at a downloadable
// file rather than a web page.
func isLikelyMedia(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Host) {
	case "i.redd.it", "v.redd.it", "i.imgur.com":
		return true
	}
	return directMediaExtensions[strings.ToLower(path.Ext(u.Path))]
}

// galleryURL returns the largest rendition of the first gallery entry.
func galleryURL(metadata map[string]galleryMedia) string {
	for _, item := range metadata {
		if item.Source != nil && item.Source.URL != "" {
			return item.Source.URL
		}
		var largest galleryImage
		for _, p := range item.Previews {
			if p.Width >= largest.Width && p.URL != "" {
				largest = p
			}
		}
		if largest.URL != "" {
			return largest.URL
		}
	}
	return ""
}

// normalizeMediaURL rewrites hosting-page URLs to direct media URLs:
// imgur pages to i.imgur.com, preview.redd.it to i.redd.it, reddit /media/
// links to i.redd.it, and strips tracking queries from direct file links.
// Listing payloads HTML-escape ampersands, so those are undone first.
// Returns "" for URLs that cannot name downloadable media.
func normalizeMediaURL(raw string) string {
	if raw == "" {
		return ""
	}
	raw = strings.ReplaceAll(raw, "&amp;", "&")

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}

	host := strings.ToLower(u.Host)

	if strings.HasSuffix(host, "imgur.com") && !directMediaExtensions[strings.ToLower(path.Ext(u.Path))] {
		id := path.Base(u.Path)
		if id == "" || id == "/" || id == "." {
			return ""
		}
		// Galleries collapse to their first image id, same as single pages.
		return "https://i.imgur.com/" + id + ".jpg"
	}

	switch host {
	case "v.redd.it":
		return raw
	case "i.redd.it":
		return "https://i.redd.it" + u.Path
	case "preview.redd.it":
		return "https://i.redd.it" + u.Path
	}

	if (strings.HasSuffix(host, "reddit.com") || host == "redd.it") && strings.Contains(u.Path, "/media/") {
		return "https://i.redd.it/" + path.Base(u.Path)
	}

	if directMediaExtensions[strings.ToLower(path.Ext(u.Path))] {
		return u.Scheme + "://" + u.Host + u.Path
	}

	return raw
}
