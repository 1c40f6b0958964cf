package legislation

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"parlwatch-backend/lib/scrapers/chambre"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

var tracer = otel.Tracer("services/legislation")

// Config mirrors config.json5. Zero values are legal: no retries, no
// proxies, no delay.
type Config struct {
	BaseUrl                    string                  `json:"base_url"`
	DataDir                    string                  `json:"data_dir"`
	ForceRescrape              bool                    `json:"force_rescrape"`
	MaxPages                   int                     `json:"max_pages"`
	RequestTimeoutSeconds      int                     `json:"request_timeout_seconds"`
	RetryAttempts              int                     `json:"retry_attempts"`
	DelayBetweenRequestsSecond float64                 `json:"delay_between_requests_seconds"`
	Proxies                    []chambre.ProxyEndpoint `json:"proxies"`
	ProxyRotation              bool                    `json:"proxy_rotation"`
	IdentifyMinistries         bool                    `json:"identify_ministries"`
	DebugDumpDir               string                  `json:"debug_dump_dir"`
	AccessToken                string                  `json:"access_token"`
	Port                       int                     `json:"port"`
	LogLevel                   string                  `json:"log_level"`
}

const defaultMaxPages = 50

// RunResult summarizes one scrape run.
type RunResult struct {
	RunId        string `json:"run_id"`
	Year         string `json:"year"`
	ScrapedItems int    `json:"scraped_items"`
	SkippedItems int    `json:"skipped_items"`
	FailedItems  int    `json:"failed_items"`
	TotalPages   int    `json:"total_pages"`
}

// RunError is a run that aborted partway. It carries the stats up to
// the failure so partial progress is still reported (the store has
// already persisted it page by page).
type RunError struct {
	Page    int
	Partial RunResult
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("scrape aborted at page %d: %v", e.Page, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

type Service struct {
	config Config
	client *chambre.Client
}

func NewService(config Config) (*Service, error) {
	if config.DataDir == "" {
		config.DataDir = "data"
	}
	if config.MaxPages <= 0 {
		config.MaxPages = defaultMaxPages
	}

	// the limiter is owned here and shared with the client so every
	// request in a run, listing or detail, honors the same delay
	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.DelayBetweenRequestsSecond > 0 {
		interval := time.Duration(config.DelayBetweenRequestsSecond * float64(time.Second))
		limiter = rate.NewLimiter(rate.Every(interval), 1)
	}

	client, err := chambre.NewClient(chambre.ClientOptions{
		BaseUrl:        config.BaseUrl,
		RequestTimeout: time.Duration(config.RequestTimeoutSeconds) * time.Second,
		RetryAttempts:  config.RetryAttempts,
		Proxies:        config.Proxies,
		ProxyRotation:  config.ProxyRotation,
		Limiter:        limiter,
		DebugDumpDir:   config.DebugDumpDir,
	})
	if err != nil {
		return nil, err
	}
	return &Service{config: config, client: client}, nil
}

func listingParams(yearId string, page int) url.Values {
	return url.Values{
		"commissions_id":                    {"All"},
		"field_ministeres_new_target_id":    {"All"},
		"field_annee_legislative_target_id": {yearId},
		"page":                              {strconv.Itoa(page)},
	}
}

// RunScrape executes one incremental scrape of the current legislative
// year: resolve the year, walk the listing pages, fetch and extract the
// detail page of every law the duplicate guard lets through, persisting
// after every page. Item failures are counted and skipped; only listing
// or store failures abort the run.
func (s *Service) RunScrape(ctx context.Context, force bool) (RunResult, error) {
	ctx, span := tracer.Start(ctx, "RunScrape")
	defer span.End()

	runId, err := random.String(8)
	if err != nil {
		return RunResult{}, err
	}
	log := slog.With("run_id", runId)
	force = force || s.config.ForceRescrape

	result := RunResult{RunId: runId}

	// an unfiltered listing fetch tells us which legislative year the
	// site is currently showing; the pagination loop then filters by it
	firstPage, err := s.client.FetchDocument(ctx, chambre.ListingPath, listingParams("All", 0))
	if err != nil {
		return result, &RunError{Page: 0, Partial: result, Err: err}
	}
	year, yearId := chambre.ExtractLegislativeYear(firstPage)
	if year == "" {
		y := time.Now().Year()
		year = fmt.Sprintf("%d-%d", y, y+1)
		yearId = strconv.Itoa(y)
		log.Warn("year filter not found on listing, falling back to calendar year", "year", year)
	}
	result.Year = year
	span.SetAttributes(attribute.String("year", year), attribute.String("year_id", yearId))
	log.Info("starting scrape", "year", year, "year_id", yearId, "force", force)

	store := NewStore(s.config.DataDir, ArtifactYear(year))
	if err := store.Load(); err != nil {
		return result, &RunError{Page: 0, Partial: result, Err: err}
	}
	store.Label = year
	store.YearId = yearId

	seen := map[string]struct{}{}
	for page := 0; page < s.config.MaxPages; page++ {
		doc, err := s.client.FetchDocument(ctx, chambre.ListingPath, listingParams(yearId, page))
		if err != nil {
			return result, &RunError{Page: page, Partial: result, Err: err}
		}
		result.TotalPages = page + 1

		if chambre.HasNoContent(doc) {
			log.Info("no content marker, stopping pagination", "page", page)
			break
		}

		items := chambre.ExtractListing(ctx, doc, s.client.BaseUrl)
		newItems := 0
		for i := range items {
			if _, dup := seen[items[i].Url]; dup {
				continue
			}
			seen[items[i].Url] = struct{}{}
			newItems++
			items[i].Page = page

			if err := ctx.Err(); err != nil {
				return result, &RunError{Page: page, Partial: result, Err: err}
			}
			s.scrapeItem(ctx, log, store, items[i], force, &result)
		}

		if newItems == 0 {
			log.Info("no new links, stopping pagination", "page", page)
			break
		}
		if err := store.Persist(); err != nil {
			return result, &RunError{Page: page, Partial: result, Err: err}
		}
		log.Info("page complete",
			"page", page,
			"new_links", newItems,
			"stored", store.Len())
	}

	if s.config.IdentifyMinistries {
		if err := s.identifyMinistries(ctx, log, store); err != nil {
			log.Warn("ministry identification incomplete", "err", err)
		}
	}

	if err := store.Persist(); err != nil {
		return result, &RunError{Page: result.TotalPages, Partial: result, Err: err}
	}
	log.Info("scrape complete",
		"scraped", result.ScrapedItems,
		"skipped", result.SkippedItems,
		"failed", result.FailedItems,
		"pages", result.TotalPages)
	return result, nil
}

func (s *Service) scrapeItem(ctx context.Context, log *slog.Logger, store *Store, listing chambre.ListingItem, force bool, result *RunResult) {
	if listing.LawNumber == "" {
		log.Warn("listing link without a law number", "url", listing.Url, "title", listing.Title)
		result.FailedItems++
		return
	}

	switch Decide(store, listing.LawNumber, force) {
	case Skip:
		log.Debug("already stored", "law_number", listing.LawNumber)
		result.SkippedItems++
		return
	case Replace:
		log.Info("rescraping", "law_number", listing.LawNumber)
	}

	doc, err := s.client.FetchDocument(ctx, listing.Url, nil)
	if err != nil {
		log.Warn("detail fetch failed", "law_number", listing.LawNumber, "err", err)
		result.FailedItems++
		return
	}

	decision := chambre.Classify(doc)
	item, err := chambre.ExtractDetail(ctx, doc, decision, listing, s.client.BaseUrl)
	if err != nil {
		log.Warn("detail extraction failed", "law_number", listing.LawNumber, "err", err)
		result.FailedItems++
		return
	}
	item.ScrapedAt = time.Now().UTC()

	// a replacement overwrites the whole record, including a stage
	// that moved backwards after a site correction
	store.Put(item)
	result.ScrapedItems++
	log.Info("scraped",
		"law_number", item.LawNumber,
		"stage", item.Stage,
		"commission_id", item.CommissionId)
}

// identifyMinistries attributes ministries by elimination: the listing
// is refetched once per ministry filter and stored items whose urls
// appear under a filter get that ministry.
func (s *Service) identifyMinistries(ctx context.Context, log *slog.Logger, store *Store) error {
	ctx, span := tracer.Start(ctx, "identifyMinistries")
	defer span.End()

	unresolved := map[string]string{}
	for _, item := range store.Items() {
		if item.MinistryId == chambre.Unidentified || item.MinistryId == "" {
			unresolved[item.Url] = item.LawNumber
		}
	}
	if len(unresolved) == 0 {
		return nil
	}
	log.Info("identifying ministries", "unresolved", len(unresolved))

	for _, ministryId := range chambre.MinistryIds() {
		if len(unresolved) == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		params := listingParams(store.YearId, 0)
		params.Set("field_ministeres_new_target_id", ministryId)
		doc, err := s.client.FetchDocument(ctx, chambre.ListingPath, params)
		if err != nil {
			log.Warn("ministry filter fetch failed", "ministry_id", ministryId, "err", err)
			continue
		}
		if chambre.HasNoContent(doc) {
			continue
		}

		for _, listing := range chambre.ExtractListing(ctx, doc, s.client.BaseUrl) {
			lawNumber, ok := unresolved[listing.Url]
			if !ok {
				continue
			}
			item, ok := store.Get(lawNumber)
			if !ok {
				continue
			}
			item.MinistryId = ministryId
			item.Ministry = chambre.MinistryName(ministryId)
			store.Put(item)
			delete(unresolved, listing.Url)
			log.Info("ministry identified",
				"law_number", lawNumber,
				"ministry_id", ministryId)
		}
	}
	return nil
}

// LoadDataset reads the persisted dataset for a year without scraping.
func (s *Service) LoadDataset(year string) (Dataset, error) {
	return ReadDataset(s.config.DataDir, year)
}
