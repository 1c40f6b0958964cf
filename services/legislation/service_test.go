package legislation

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"parlwatch-backend/lib/scrapers/chambre"
	"parlwatch-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

// fixtureSite serves a miniature rendition of the chamber site: one
// listing page with three bills and their detail pages. The stage of
// bill 10.25 can be flipped to second reading between runs.
type fixtureSite struct {
	server *httptest.Server

	mu            sync.Mutex
	transferred   bool
	detailFetches map[string]int
}

func newFixtureSite(t testing.TB) *fixtureSite {
	site := &fixtureSite{detailFetches: map[string]int{}}
	site.server = httptest.NewServer(http.HandlerFunc(site.handle))
	t.Cleanup(site.server.Close)
	return site
}

const fixtureListing = `<html><body>
<select name="field_annee_legislative_target_id">
  <option value="All">- Tout -</option>
  <option value="112">2024-2025</option>
</select>
<a href="/fr/projet-de-loi/10-25">Projet de loi N° 10.25 relative aux archives</a>
<a href="/fr/projet-de-loi/20-25">Projet de loi N° 20.25 portant code du travail</a>
<a href="/fr/projet-de-loi/30-25">Projet de loi N° 30.25 relative aux assurances</a>
</body></html>`

const fixtureMinistryListing = `<html><body>
<a href="/fr/projet-de-loi/10-25">Projet de loi N° 10.25 relative aux archives</a>
</body></html>`

const fixtureNoContent = `<html><body><p>Il n' y a pas de contenu actuellement.</p></body></html>`

func detailFirstReading(lawNumber string) string {
	return fmt.Sprintf(`<html><body>
<h1>Projet de loi N° %s</h1>
<div class="dp-block">
  <p>Bureau de la Chambre</p>
  <p>Texte source: Gouvernement</p>
  <p>Date de dépôt: Lundi 10 mars 2025</p>
</div>
<div class="dp-block">
  <p>Soumis à Commission des secteurs sociaux le Mercredi 12 mars 2025</p>
</div>
</body></html>`, lawNumber)
}

func detailSecondReading(lawNumber string) string {
	return fmt.Sprintf(`<html><body>
<h1>Projet de loi N° %s</h1>
<div class="dp-block">
  <p>Bureau de la Chambre</p>
  <p>Texte source: Gouvernement</p>
  <p>Date de dépôt: Lundi 10 mars 2025</p>
</div>
<div class="dp-block">
  <p>Soumis à Commission des secteurs sociaux le Mercredi 12 mars 2025</p>
</div>
<div class="dp-block">
  <p>Il a été transféré à la Chambre le Jeudi 5 juin 2025</p>
</div>
</body></html>`, lawNumber)
}

// 30.25 has no process sections at all
const detailBare = `<html><body>
<h1>Projet de loi N° 30.25</h1>
<p>La fiche de procédure est en cours de mise à jour.</p>
</body></html>`

func (s *fixtureSite) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == chambre.ListingPath {
		ministry := r.URL.Query().Get("field_ministeres_new_target_id")
		if ministry != "All" && ministry != "" {
			if ministry == "2" {
				fmt.Fprint(w, fixtureMinistryListing)
			} else {
				fmt.Fprint(w, fixtureNoContent)
			}
			return
		}
		if r.URL.Query().Get("page") == "0" {
			fmt.Fprint(w, fixtureListing)
		} else {
			fmt.Fprint(w, fixtureNoContent)
		}
		return
	}

	if strings.HasPrefix(r.URL.Path, "/fr/projet-de-loi/") {
		s.mu.Lock()
		s.detailFetches[r.URL.Path]++
		transferred := s.transferred
		s.mu.Unlock()

		switch r.URL.Path {
		case "/fr/projet-de-loi/10-25":
			if transferred {
				fmt.Fprint(w, detailSecondReading("10.25"))
			} else {
				fmt.Fprint(w, detailFirstReading("10.25"))
			}
		case "/fr/projet-de-loi/20-25":
			fmt.Fprint(w, detailFirstReading("20.25"))
		case "/fr/projet-de-loi/30-25":
			fmt.Fprint(w, detailBare)
		default:
			http.NotFound(w, r)
		}
		return
	}

	http.NotFound(w, r)
}

func (s *fixtureSite) fetches(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detailFetches[path]
}

func newTestService(t testing.TB, site *fixtureSite, config Config) *Service {
	config.BaseUrl = site.server.URL
	service, err := NewService(config)
	require.NoError(t, err)
	return service
}

func TestRunScrapeIdempotence(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:legislation")
	defer cleanup()

	site := newFixtureSite(t)
	dir := t.TempDir()
	service := newTestService(t, site, Config{DataDir: dir})

	result, err := service.RunScrape(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, "2024-2025", result.Year)
	require.Equal(t, 3, result.ScrapedItems)
	require.Equal(t, 0, result.SkippedItems)
	require.Equal(t, 0, result.FailedItems)

	dataset, err := ReadDataset(dir, "2025")
	require.NoError(t, err)
	require.Equal(t, 3, dataset.TotalCount)
	require.Equal(t, "2024-2025", dataset.CurrentYear)
	require.Equal(t, "112", dataset.CurrentYearId)
	require.Len(t, dataset.Data, 3)

	// second run skips everything before fetching any detail page
	result, err = service.RunScrape(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 0, result.ScrapedItems)
	require.Equal(t, 3, result.SkippedItems)
	require.Equal(t, 1, site.fetches("/fr/projet-de-loi/20-25"))

	dataset, err = ReadDataset(dir, "2025")
	require.NoError(t, err)
	require.Len(t, dataset.Data, 3)
}

func TestRunScrapeForceReplacesRecord(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:legislation")
	defer cleanup()

	site := newFixtureSite(t)
	dir := t.TempDir()
	service := newTestService(t, site, Config{DataDir: dir})

	_, err := service.RunScrape(context.Background(), false)
	require.NoError(t, err)

	dataset, err := ReadDataset(dir, "2025")
	require.NoError(t, err)
	require.Equal(t, chambre.StageFirstReading, dataset.Data[0].Stage)
	require.NotNil(t, dataset.Data[0].FirstReading)

	// the bill moves to second reading, a forced run must replace the
	// whole record
	site.mu.Lock()
	site.transferred = true
	site.mu.Unlock()

	result, err := service.RunScrape(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, 3, result.ScrapedItems)
	require.Equal(t, 0, result.SkippedItems)

	dataset, err = ReadDataset(dir, "2025")
	require.NoError(t, err)
	require.Len(t, dataset.Data, 3)
	require.Equal(t, "10.25", dataset.Data[0].LawNumber)
	require.Equal(t, chambre.StageSecondReading, dataset.Data[0].Stage)
	require.NotNil(t, dataset.Data[0].SecondReading)
	require.Equal(t, "Jeudi 5 juin 2025", dataset.Data[0].SecondReading.TransferDate)
}

func TestRunScrapePageCap(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:legislation")
	defer cleanup()

	site := newFixtureSite(t)
	service := newTestService(t, site, Config{DataDir: t.TempDir(), MaxPages: 1})

	result, err := service.RunScrape(context.Background(), false)
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalPages)
	require.Equal(t, 3, result.ScrapedItems)
}

func TestRunScrapeUnknownStagePersisted(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:legislation")
	defer cleanup()

	site := newFixtureSite(t)
	dir := t.TempDir()
	service := newTestService(t, site, Config{DataDir: dir})

	_, err := service.RunScrape(context.Background(), false)
	require.NoError(t, err)

	dataset, err := ReadDataset(dir, "2025")
	require.NoError(t, err)

	var bare *chambre.LegislationItem
	for i := range dataset.Data {
		if dataset.Data[i].LawNumber == "30.25" {
			bare = &dataset.Data[i]
		}
	}
	require.NotNil(t, bare)
	require.Equal(t, chambre.StageUnknown, bare.Stage)
	require.Nil(t, bare.FirstReading)
	require.Nil(t, bare.SecondReading)
}

func TestRunScrapeIdentifiesMinistries(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:legislation")
	defer cleanup()

	site := newFixtureSite(t)
	dir := t.TempDir()
	service := newTestService(t, site, Config{DataDir: dir, IdentifyMinistries: true})

	_, err := service.RunScrape(context.Background(), false)
	require.NoError(t, err)

	dataset, err := ReadDataset(dir, "2025")
	require.NoError(t, err)

	var archived *chambre.LegislationItem
	for i := range dataset.Data {
		if dataset.Data[i].LawNumber == "10.25" {
			archived = &dataset.Data[i]
		}
	}
	require.NotNil(t, archived)
	require.Equal(t, "2", archived.MinistryId)
	require.Equal(t, "Éducation nationale", archived.Ministry)

	// the other bills never showed up under a ministry filter
	for i := range dataset.Data {
		if dataset.Data[i].LawNumber != "10.25" {
			require.Equal(t, chambre.Unidentified, dataset.Data[i].MinistryId)
		}
	}
}
