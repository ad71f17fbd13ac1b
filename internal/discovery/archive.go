package discovery

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/meralco-rates/internal/fetcher"
	"github.com/sells-group/meralco-rates/internal/model"
)

// errSkipDetail marks a detail page that does not resolve to a dated document.
var errSkipDetail = eris.New("discovery: detail page has no dated document")

// CrawlerOptions configures an ArchiveCrawler.
type CrawlerOptions struct {
	// ArchiveURL is the paginated index; pages are requested as ?page=N.
	ArchiveURL string
	// BaseURL is the site origin detail and document links resolve against.
	BaseURL string
	// PolitenessDelay is the minimum spacing between any two crawl requests.
	// Zero disables throttling.
	PolitenessDelay time.Duration
	// MaxPages caps the number of index pages visited. Zero means unlimited.
	MaxPages int
}

// ArchiveCrawler walks the newest-first rate schedule archive and collects
// the documents that fall within a month range.
type ArchiveCrawler struct {
	fetcher  fetcher.Fetcher
	archive  *url.URL
	base     *url.URL
	throttle *rate.Limiter
	maxPages int
}

// NewArchiveCrawler creates an ArchiveCrawler.
func NewArchiveCrawler(f fetcher.Fetcher, opts CrawlerOptions) (*ArchiveCrawler, error) {
	archive, err := url.Parse(opts.ArchiveURL)
	if err != nil || archive.Scheme == "" || archive.Host == "" {
		return nil, eris.Errorf("discovery: invalid archive url %q", opts.ArchiveURL)
	}
	base, err := url.Parse(opts.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, eris.Errorf("discovery: invalid base url %q", opts.BaseURL)
	}

	limit := rate.Inf
	if opts.PolitenessDelay > 0 {
		limit = rate.Every(opts.PolitenessDelay)
	}

	return &ArchiveCrawler{
		fetcher:  f,
		archive:  archive,
		base:     base,
		throttle: rate.NewLimiter(limit, 1),
		maxPages: opts.MaxPages,
	}, nil
}

// LocateRange crawls index pages 0, 1, 2, ... and returns the items whose
// month lies in [start, end], in discovery order. Months newer than end are
// skipped; the first month older than start halts the whole crawl, since the
// archive is assumed to be ordered newest first. That assumption is not
// verified: an out-of-order archive silently loses items.
//
// An index page failure ends the crawl and returns what was found so far; a
// detail page failure skips that page. The error is non-nil only for invalid
// arguments.
func (c *ArchiveCrawler) LocateRange(ctx context.Context, start, end string) ([]model.DiscoveryItem, error) {
	start, err := ParseMonthKey(start)
	if err != nil {
		return nil, err
	}
	end, err = ParseMonthKey(end)
	if err != nil {
		return nil, err
	}
	if start > end {
		return nil, eris.Errorf("discovery: start month %s is after end month %s", start, end)
	}

	log := zap.L().With(zap.String("start", start), zap.String("end", end))

	var items []model.DiscoveryItem
	seenNodes := make(map[string]bool)
	seenDocs := make(map[string]bool)
	pagesCrawled := 0

crawl:
	for pageNum := 0; c.maxPages == 0 || pageNum < c.maxPages; pageNum++ {
		pageURL := c.pageURL(pageNum)
		log.Info("crawling archive page", zap.Int("page", pageNum), zap.String("url", pageURL))

		if err := c.throttle.Wait(ctx); err != nil {
			log.Error("crawl interrupted", zap.Error(err))
			break
		}
		body, err := c.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			log.Error("failed to fetch archive page", zap.Int("page", pageNum), zap.Error(err))
			break
		}
		pagesCrawled++

		links := parsePage(body).detailLinks(c.base)
		if len(links) == 0 {
			log.Debug("no detail links on page, archive exhausted", zap.Int("page", pageNum))
			break
		}

		fresh := 0
		for _, nodeURL := range links {
			if seenNodes[nodeURL] {
				continue
			}
			seenNodes[nodeURL] = true
			fresh++

			item, err := c.resolveDetail(ctx, nodeURL)
			if err != nil {
				if ctx.Err() != nil {
					log.Error("crawl interrupted", zap.Error(ctx.Err()))
					break crawl
				}
				if !errors.Is(err, errSkipDetail) {
					log.Warn("failed to fetch detail page", zap.String("url", nodeURL), zap.Error(err))
				}
				continue
			}

			if seenDocs[item.DocumentURL] {
				continue
			}

			switch {
			case item.MonthKey > end:
				seenDocs[item.DocumentURL] = true
			case item.MonthKey < start:
				log.Info("found month older than start, halting crawl",
					zap.String("month_key", item.MonthKey),
					zap.String("url", nodeURL),
				)
				break crawl
			default:
				seenDocs[item.DocumentURL] = true
				items = append(items, item)
			}
		}

		// Some archives serve their last page again for out-of-range numbers.
		if fresh == 0 {
			log.Debug("page repeated already visited links, ending pagination", zap.Int("page", pageNum))
			break
		}
	}

	log.Info("crawler finished",
		zap.Int("pages_crawled", pagesCrawled),
		zap.Int("items", len(items)),
	)
	return items, nil
}

// resolveDetail fetches one detail page and resolves its document and month.
func (c *ArchiveCrawler) resolveDetail(ctx context.Context, nodeURL string) (model.DiscoveryItem, error) {
	if err := c.throttle.Wait(ctx); err != nil {
		return model.DiscoveryItem{}, err
	}
	body, err := c.fetcher.Fetch(ctx, nodeURL)
	if err != nil {
		return model.DiscoveryItem{}, err
	}

	p := parsePage(body)
	docURL := resolveDocument(p, c.base)
	if docURL == "" {
		return model.DiscoveryItem{}, errSkipDetail
	}

	title := p.title()
	month := MonthFromDocumentURL(docURL)
	if month == "" {
		month = MonthFromTitle(title)
	}
	if month == "" {
		zap.L().Debug("could not resolve month for document",
			zap.String("url", nodeURL),
			zap.String("pdf_url", docURL),
		)
		return model.DiscoveryItem{}, errSkipDetail
	}

	return model.DiscoveryItem{
		DocumentURL: docURL,
		OriginURL:   nodeURL,
		MonthKey:    month,
		Title:       cleanTitle(title),
	}, nil
}

func (c *ArchiveCrawler) pageURL(n int) string {
	u := *c.archive
	q := u.Query()
	q.Set("page", strconv.Itoa(n))
	u.RawQuery = q.Encode()
	return u.String()
}
