package reddit

import (
	"html"
	"regexp"
	"strings"
)

var (
	reHTMLTag       = regexp.MustCompile(`<[^>]+>`)
	reMarkdownLink  = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	reBareURL       = regexp.MustCompile(`https?://\S+`)
	reZeroWidth     = regexp.MustCompile(`&amp;#x200B;|&#x200B;|\x{200B}`)
	reBold          = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reItalic        = regexp.MustCompile(`\*([^*]+)\*`)
	reStrikethrough = regexp.MustCompile(`~~([^~]+)~~`)
	reHeading       = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	reQuote         = regexp.MustCompile(`(?m)^[>\s]+`)
	reListItem      = regexp.MustCompile(`(?m)^[-*]\s+`)
	reManyNewlines  = regexp.MustCompile(`\n{3,}`)
	reSpaces        = regexp.MustCompile(`[ \t]+`)
)

// CleanText strips Reddit markdown, HTML leftovers, and raw URLs from a
// post or comment body, leaving plain prose for the analysis prompt
func CleanText(text string) string {
	if text == "" {
		return ""
	}

	text = html.UnescapeString(text)
	text = reHTMLTag.ReplaceAllString(text, "")
	text = reMarkdownLink.ReplaceAllString(text, "$1")
	text = reBareURL.ReplaceAllString(text, "")
	text = reZeroWidth.ReplaceAllString(text, "")
	text = reBold.ReplaceAllString(text, "$1")
	text = reItalic.ReplaceAllString(text, "$1")
	text = reStrikethrough.ReplaceAllString(text, "$1")
	text = reHeading.ReplaceAllString(text, "")
	text = reQuote.ReplaceAllString(text, "")
	text = reListItem.ReplaceAllString(text, "")
	text = reManyNewlines.ReplaceAllString(text, "\n\n")
	text = reSpaces.ReplaceAllString(text, " ")

	return strings.TrimSpace(text)
}

// cleanComments cleans each comment and drops any that end up empty
func cleanComments(comments []string) []string {
	var out []string
	for _, c := range comments {
		if cleaned := CleanText(c); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out
}
