// Package discovery locates published rate schedule documents through the
// syndication feed and the paginated archive.
package discovery

import (
	"bytes"
	"context"
	"encoding/xml"
	"io"
	"iter"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/meralco-rates/internal/fetcher"
	"github.com/sells-group/meralco-rates/internal/model"
)

// ErrNoFeedEntry is returned when no feed entry resolves to a rate schedule.
var ErrNoFeedEntry = eris.New("discovery: no summary of schedule of rates in feed")

// Title phrases that mark a rate schedule announcement, compared upper-cased.
var feedTitlePhrases = []string{
	"SUMMARY OF SCHEDULE OF RATES",
	"SUMMARY SCHEDULE OF RATES",
}

type feedItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

// FeedLocator finds the newest rate schedule announced in the syndication feed.
type FeedLocator struct {
	fetcher fetcher.Fetcher
	feedURL string
	base    *url.URL
}

// NewFeedLocator creates a FeedLocator. Relative document links resolve
// against baseURL.
func NewFeedLocator(f fetcher.Fetcher, feedURL, baseURL string) (*FeedLocator, error) {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, eris.Errorf("discovery: invalid base url %q", baseURL)
	}
	return &FeedLocator{fetcher: f, feedURL: feedURL, base: base}, nil
}

// LocateLatest walks feed items in document order (assumed newest first) and
// returns the first rate schedule announcement whose linked page yields a
// document. Items whose page cannot be fetched or has no PDF are skipped.
func (l *FeedLocator) LocateLatest(ctx context.Context) (model.DiscoveryItem, error) {
	log := zap.L().With(zap.String("feed_url", l.feedURL))

	data, err := l.fetcher.Fetch(ctx, l.feedURL)
	if err != nil {
		return model.DiscoveryItem{}, eris.Wrap(err, "discovery: fetch feed")
	}

	for entry, err := range feedItems(bytes.NewReader(data)) {
		if err != nil {
			return model.DiscoveryItem{}, err
		}
		if !isScheduleTitle(entry.Title) {
			continue
		}

		item, err := l.resolve(ctx, entry)
		if err != nil {
			log.Warn("skipping feed entry", zap.String("title", entry.Title), zap.Error(err))
			continue
		}

		log.Info("located latest rate schedule",
			zap.String("month_key", item.MonthKey),
			zap.String("pdf_url", item.DocumentURL),
		)
		return item, nil
	}

	return model.DiscoveryItem{}, ErrNoFeedEntry
}

func (l *FeedLocator) resolve(ctx context.Context, entry feedItem) (model.DiscoveryItem, error) {
	if entry.Link == "" {
		return model.DiscoveryItem{}, eris.New("entry has no link")
	}

	html, err := l.fetcher.Fetch(ctx, entry.Link)
	if err != nil {
		return model.DiscoveryItem{}, eris.Wrap(err, "fetch entry page")
	}

	docURL := resolveDocument(parsePage(html), l.base)
	if docURL == "" {
		return model.DiscoveryItem{}, eris.Errorf("no pdf link on %s", entry.Link)
	}

	month := MonthFromPubDate(entry.PubDate)
	if month == "" {
		month = MonthFromTitle(entry.Title)
	}

	return model.DiscoveryItem{
		DocumentURL: docURL,
		OriginURL:   entry.Link,
		MonthKey:    month,
		Title:       entry.Title,
	}, nil
}

func isScheduleTitle(title string) bool {
	upper := strings.ToUpper(title)
	for _, p := range feedTitlePhrases {
		if strings.Contains(upper, p) {
			return true
		}
	}
	return false
}

// feedItems decodes <item> elements from an RSS document in order. Decoding
// stops at the first error, which is yielded once.
func feedItems(r io.Reader) iter.Seq2[feedItem, error] {
	return func(yield func(feedItem, error) bool) {
		decoder := xml.NewDecoder(r)
		decoder.Strict = false
		decoder.Entity = xml.HTMLEntity
		decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
			enc, err := htmlindex.Get(charset)
			if err != nil {
				return nil, eris.Wrapf(err, "feed: unsupported charset %q", charset)
			}
			return enc.NewDecoder().Reader(input), nil
		}

		for {
			tok, err := decoder.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(feedItem{}, eris.Wrap(err, "feed: read token"))
				return
			}

			se, ok := tok.(xml.StartElement)
			if !ok || se.Name.Local != "item" {
				continue
			}

			var item feedItem
			if err := decoder.DecodeElement(&item, &se); err != nil {
				yield(feedItem{}, eris.Wrap(err, "feed: decode item"))
				return
			}
			item.Title = strings.TrimSpace(item.Title)
			item.Link = strings.TrimSpace(item.Link)
			item.PubDate = strings.TrimSpace(item.PubDate)

			if !yield(item, nil) {
				return
			}
		}
	}
}
