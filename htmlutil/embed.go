package htmlutil

import (
	"regexp"
	"strings"

	"github.com/pevans/pressfeed/article"
)

// embedPatterns are tried in order; the first match wins.
var embedPatterns = []struct {
	platform article.EmbedPlatform
	pattern  *regexp.Regexp
}{
	{article.PlatformYouTube, regexp.MustCompile(`(?i)^https?://(?:[\w-]+\.)*(?:youtube\.com|youtube-nocookie\.com|youtu\.be)(?:/|$)`)},
	{article.PlatformVimeo, regexp.MustCompile(`(?i)^https?://(?:[\w-]+\.)*vimeo\.com(?:/|$)`)},
	{article.PlatformDailymotion, regexp.MustCompile(`(?i)^https?://(?:[\w-]+\.)*(?:dailymotion\.com|dai\.ly)(?:/|$)`)},
	{article.PlatformX, regexp.MustCompile(`(?i)^https?://(?:[\w-]+\.)*(?:twitter\.com|x\.com)(?:/|$)`)},
	{article.PlatformInstagram, regexp.MustCompile(`(?i)^https?://(?:[\w-]+\.)*(?:instagram\.com|instagr\.am)(?:/|$)`)},
	{article.PlatformFacebook, regexp.MustCompile(`(?i)^https?://(?:[\w-]+\.)*(?:facebook\.com|fb\.watch|fb\.com)(?:/|$)`)},
	{article.PlatformTikTok, regexp.MustCompile(`(?i)^https?://(?:[\w-]+\.)*tiktok\.com(?:/|$)`)},
}

// ClassifyEmbed maps an embed URL onto the closed platform set. URLs that
// match no known provider are PlatformOther.
func ClassifyEmbed(rawURL string) article.EmbedPlatform {
	u := strings.TrimSpace(rawURL)
	if strings.HasPrefix(u, "//") {
		u = "https:" + u
	}
	for _, p := range embedPatterns {
		if p.pattern.MatchString(u) {
			return p.platform
		}
	}
	return article.PlatformOther
}
