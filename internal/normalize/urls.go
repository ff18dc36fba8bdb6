package normalize

import "regexp"

var urlPattern = regexp.MustCompile(`http[s]?://(?:[a-zA-Z]|[0-9]|[$-_@.&+]|[!*\(\),]|(?:%[0-9a-fA-F][0-9a-fA-F]))+`)

// ExtractURLs returns every http(s) URL in text, in order. The result is
// empty, never nil, when there are none.
func ExtractURLs(text string) []string {
	urls := urlPattern.FindAllString(text, -1)
	if urls == nil {
		return []string{}
	}
	return urls
}
