package businesslist

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"leadscout/internal/scrape/locate"
	"leadscout/internal/scrape/util"
)

// listingEntryClass is the class-list prefix shared by every company card on
// a category page ("company with_img g_<n>", sometimes with extra classes).
const listingEntryClass = "company with_img g_"

// ExtractLinks returns the detail-page URLs on a listing page, in page
// order. Cards without an h4 > a[href] are skipped. An empty result means
// the page has no entries.
func ExtractLinks(doc *goquery.Document, baseURL string, log *zap.Logger) []string {
	if log == nil {
		log = zap.NewNop()
	}
	cards := locate.ClassContains(doc.Selection, "div", listingEntryClass)
	log.Debug("links: company cards found", zap.Int("count", cards.Length()))

	var out []string
	cards.Each(func(_ int, card *goquery.Selection) {
		h4 := card.Find("h4").First()
		if h4.Length() == 0 {
			return
		}
		href, ok := h4.Find("a").First().Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}
		abs, err := util.ResolveURL(baseURL, href)
		if err != nil {
			log.Debug("links: unresolvable href", zap.String("href", href), zap.Error(err))
			return
		}
		log.Debug("links: business link", zap.String("url", abs))
		out = append(out, abs)
	})
	return out
}
