package discovery

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	titleSuffix  = "| Meralco"
	defaultTitle = "Historical Meralco Rates"
)

var detailPathRe = regexp.MustCompile(`^/node/\d+$`)

// page is a best-effort view of a fetched HTML page. Malformed markup yields
// an empty page, never an error.
type page struct {
	doc *goquery.Document
}

func parsePage(body []byte) page {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return page{}
	}
	return page{doc: doc}
}

// title returns the trimmed <title> text.
func (p page) title() string {
	if p.doc == nil {
		return ""
	}
	return strings.TrimSpace(p.doc.Find("title").First().Text())
}

// documentHrefs returns every href attribute that targets a PDF, in document order.
func (p page) documentHrefs() []string {
	if p.doc == nil {
		return nil
	}
	var hrefs []string
	p.doc.Find("[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if isPDFHref(href) {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs
}

// detailLinks returns the distinct archive detail pages (/node/<id>) linked
// from the page, resolved against base, in document order.
func (p page) detailLinks(base *url.URL) []string {
	if p.doc == nil {
		return nil
	}
	var links []string
	seen := make(map[string]bool)
	p.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}
		if u.Host != "" && u.Host != base.Host {
			return
		}
		if !detailPathRe.MatchString(u.Path) {
			return
		}
		abs := base.ResolveReference(&url.URL{Path: u.Path}).String()
		if !seen[abs] {
			seen[abs] = true
			links = append(links, abs)
		}
	})
	return links
}

// selectDocument picks the rate schedule among PDF hrefs: the first whose
// text mentions "rate" together with "schedule" or "summary", else the last.
func selectDocument(hrefs []string) string {
	for _, h := range hrefs {
		l := strings.ToLower(h)
		if strings.Contains(l, "rate") && (strings.Contains(l, "schedule") || strings.Contains(l, "summary")) {
			return h
		}
	}
	if len(hrefs) == 0 {
		return ""
	}
	return hrefs[len(hrefs)-1]
}

// resolveDocument finds and absolutizes the rate schedule link on a page.
func resolveDocument(p page, base *url.URL) string {
	href := selectDocument(p.documentHrefs())
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func cleanTitle(title string) string {
	title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(title), titleSuffix))
	if title == "" {
		return defaultTitle
	}
	return title
}

func isPDFHref(href string) bool {
	if href == "" {
		return false
	}
	path := strings.ToLower(href)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	return strings.HasSuffix(path, ".pdf")
}
