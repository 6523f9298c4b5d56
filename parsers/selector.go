package parsers

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pevans/pressfeed/article"
	"github.com/pevans/pressfeed/htmlutil"
)

// SelectorParser reads sites described by CSS selectors in configuration.
// Configured selectors override what the page's structured data says.
type SelectorParser struct {
	base
	config SelectorConfig
}

func (p *SelectorParser) ParseArticle(html, pageURL string) (*article.Article, error) {
	page, err := p.load(html, pageURL)
	if err != nil {
		return nil, err
	}
	content, _ := firstMatch(page.Doc, p.config.ContentSelector)
	if content == nil {
		return nil, p.structural("content selector "+p.config.ContentSelector, pageURL)
	}

	w := &walker{page: page}
	a, err := p.assemble(page, pageURL, w.children(content), p.config.ContentSelector)
	if err != nil {
		return nil, err
	}

	if p.config.TitleSelector != "" {
		if title := htmlutil.CleanText(page.Doc.Find(p.config.TitleSelector).First().Text()); title != "" {
			a.Metadata.Title = title
		}
	}

	if p.config.AuthorSelector != "" {
		authors := []article.Author{}
		page.Doc.Find(p.config.AuthorSelector).Each(func(_ int, s *goquery.Selection) {
			for _, name := range htmlutil.ParseAuthors(htmlutil.CleanText(s.Text())) {
				authors = append(authors, article.Author{Name: name})
			}
		})
		if len(authors) > 0 {
			a.Authors = authors
		}
	}

	if p.config.DateSelector != "" {
		if published, ok := p.selectedDate(page.Doc.Find(p.config.DateSelector).First()); ok {
			a.Metadata.PublishedAt = published
			if m := a.Metadata.ModifiedAt; m != nil && m.Before(published) {
				a.Metadata.ModifiedAt = nil
			}
		}
	}

	return a, nil
}

// selectedDate reads a datetime attribute or the element text, using the
// configured layout when one is set.
func (p *SelectorParser) selectedDate(s *goquery.Selection) (time.Time, bool) {
	raw := strings.TrimSpace(s.AttrOr("datetime", ""))
	if raw == "" {
		raw = htmlutil.CleanText(s.Text())
	}
	if raw == "" {
		return time.Time{}, false
	}

	if p.config.DateFormat != "" {
		t, err := time.Parse(p.config.DateFormat, raw)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	t, err := htmlutil.NormalizeDate(raw)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (p *SelectorParser) Discover(html, pageURL string) ([]article.DiscoveredArticle, error) {
	page, err := p.load(html, pageURL)
	if err != nil {
		return nil, err
	}
	if p.config.ArticleSelector == "" {
		return genericDiscover(page, p.pub.ID), nil
	}

	d := newDiscovery(page, p.pub.ID)
	d.cards(p.config.ArticleSelector, cardFields{
		title:     "h1, h2, h3, h4",
		excerpt:   "p",
		thumbnail: "img",
		date:      "time",
	})
	return d.result(), nil
}
