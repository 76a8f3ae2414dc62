package board

import "regexp"

var youtubePattern = regexp.MustCompile(`^.*(youtu.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*).*`)

// YouTubeID extracts the 11 character video id from a YouTube link, or "" when there is none.
func YouTubeID(url string) string {
	m := youtubePattern.FindStringSubmatch(url)
	if m == nil || len(m[2]) != 11 {
		return ""
	}
	return m[2]
}

// EmbedURL is the player address for a YouTube link, or "" when the link has no id.
func EmbedURL(url string) string {
	id := YouTubeID(url)
	if id == "" {
		return ""
	}
	return "https://www.youtube.com/embed/" + id
}
