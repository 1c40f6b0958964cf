package chambre

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
	"time"

	"parlwatch-backend/lib/htmlutil"
	"parlwatch-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Unidentified marks a commission or ministry attribution the pipeline
// could not resolve. Absence is a valid terminal outcome, not an error.
const Unidentified = "unidentified"

// LegislationItem is one bill as extracted from its detail page. Field
// names follow the published dataset consumed by the front-end.
type LegislationItem struct {
	Title        string `json:"title"`
	FullTitle    string `json:"full_title,omitempty"`
	LawNumber    string `json:"law_number"`
	Url          string `json:"url"`
	Stage        Stage  `json:"stage"`
	Commission   string `json:"commission"`
	CommissionId string `json:"commission_id"`
	Ministry     string `json:"ministry"`
	MinistryId   string `json:"ministry_id"`
	PdfUrl       string `json:"pdf_url,omitempty"`
	PdfFilename  string `json:"pdf_filename,omitempty"`

	FirstReading  *FirstReadingRecord  `json:"premiere_lecture,omitempty"`
	SecondReading *SecondReadingRecord `json:"deuxieme_lecture,omitempty"`

	Page      int       `json:"page"`
	ScrapedAt time.Time `json:"scraped_at"`
}

type BureauSubmission struct {
	SourceText    string `json:"texte_source,omitempty"`
	DepositDate   string `json:"date_depot,omitempty"`
	DepositedText string `json:"texte_depose,omitempty"`
	PdfLink       string `json:"pdf_link,omitempty"`
}

type CommissionAssignment struct {
	CommissionName string `json:"commission_name"`
	SubmissionDate string `json:"submission_date"`
}

type PlenarySession struct {
	AdoptionDate string `json:"adoption_date,omitempty"`
	VoteResults  string `json:"vote_results,omitempty"`
}

type FirstReadingRecord struct {
	Bureau     *BureauSubmission     `json:"bureau_de_la_chambre,omitempty"`
	Commission *CommissionAssignment `json:"commission,omitempty"`
	Plenary    *PlenarySession       `json:"seance_pleniere,omitempty"`
}

type SecondReadingRecord struct {
	TransferDate string                `json:"transfer_date,omitempty"`
	Commission   *CommissionAssignment `json:"commission,omitempty"`
	Rapport      *RapportSection       `json:"rapport_section,omitempty"`
}

// RapportSection distinguishes "no report published" (nil section) from
// "report heading present but no files yet" (empty Files).
type RapportSection struct {
	SectionTitle string        `json:"section_title"`
	Files        []RapportFile `json:"files"`
}

type RapportFile struct {
	Title    string `json:"title"`
	Url      string `json:"url"`
	Filename string `json:"filename"`
	Size     string `json:"size,omitempty"`
}

// ListingItem is a bill link discovered on a listing page, the context
// carried into the detail extraction.
type ListingItem struct {
	Title     string
	FullTitle string
	LawNumber string
	Url       string
	Page      int
}

var lawNumberPatterns = []*regexp.Regexp{
	regexp.MustCompile(`N°\s*(\d+\.\d+)`),
	regexp.MustCompile(`N°\s*(\d+/\d+)`),
	regexp.MustCompile(`(\d+\.\d+)`),
	regexp.MustCompile(`(\d+/\d+)`),
}

// ExtractLawNumber pulls a law number such as "03.25" out of a bill
// title. Returns "" when no known pattern matches.
func ExtractLawNumber(text string) string {
	for _, pattern := range lawNumberPatterns {
		if m := pattern.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

var skipHrefFragments = []string{"/node/", "/user/", "/admin/"}

// ExtractListing collects the bill links of one listing page, in
// document order, de-duplicated by resolved url.
func ExtractListing(ctx context.Context, doc *goquery.Document, base *url.URL) []ListingItem {
	ctx, span := tracer.Start(ctx, "ExtractListing")
	defer span.End()

	anchors := htmlutil.GetAnchors(ctx, doc.Find(`a[href*="projet-de-loi"]`))

	var items []ListingItem
	seen := map[string]struct{}{}
	for _, a := range anchors {
		skip := false
		for _, fragment := range skipHrefFragments {
			if strings.Contains(a.Href, fragment) {
				skip = true
				break
			}
		}
		if skip || a.Name == "" {
			continue
		}

		link := htmlutil.AbsoluteURL(base, a.Href)
		if _, dup := seen[link]; dup {
			continue
		}
		seen[link] = struct{}{}

		items = append(items, ListingItem{
			Title:     textutil.CollapseWhitespace(a.Name),
			FullTitle: a.Name,
			LawNumber: ExtractLawNumber(a.Name),
			Url:       link,
		})
		span.AddEvent("listing item", trace.WithAttributes(
			attribute.String("url", link),
		))
	}
	return items
}

// NoContentMarker is rendered by the site when a filter combination has
// no results.
const NoContentMarker = "Il n' y a pas de contenu"

func HasNoContent(doc *goquery.Document) bool {
	return strings.Contains(doc.Text(), NoContentMarker)
}

// ExtractLegislativeYear reads the year filter of a listing page and
// returns the label and form value of the current legislative year
// (the first option that isn't "- Tout -").
func ExtractLegislativeYear(doc *goquery.Document) (label string, id string) {
	doc.Find(`select[name="field_annee_legislative_target_id"] option`).
		EachWithBreak(func(_ int, opt *goquery.Selection) bool {
			value := opt.AttrOr("value", "")
			text := textutil.CollapseWhitespace(opt.Text())
			if value == "" || value == "All" || text == "- Tout -" {
				return true
			}
			label = text
			id = value
			return false
		})
	return label, id
}

var (
	sourceTextRegex  = regexp.MustCompile(`Texte source\s*:\s*(.+?)\s*(?:Date de dépôt|Le texte tel|$)`)
	depositDateRegex = regexp.MustCompile(`Date de dépôt\s*:\s*([^,\n]+?)\s*(?:Le texte tel|$)`)
	transferRegex    = regexp.MustCompile(`Il a été transféré à la Chambre le\s+([^,\n]+)`)
	adoptionRegex    = regexp.MustCompile(`Date d'adoption en séance plénière\s*:\s*([^,\n]+)`)
	voteRegex        = regexp.MustCompile(`Résultat du vote\s*:?\s*([^,\n]+)`)

	// commission names can themselves contain "le", so prefer the
	// weekday-anchored date form before the loose fallback
	commissionDateRegex  = regexp.MustCompile(`Soumis à\s+(.+)\s+le\s+((?:Lundi|Mardi|Mercredi|Jeudi|Vendredi|Samedi|Dimanche)\s+\d{1,2}(?:er)?\s+\S+\s+\d{4})`)
	commissionLooseRegex = regexp.MustCompile(`Soumis à\s+(.+?)\s+le\s+([^,\n]+)`)

	depositedTextMarker = "Le texte tel qu'il a été déposé"
)

// ExtractDetail turns one fetched detail page into a LegislationItem,
// branching on the stage decision. Mandatory fields are the title, law
// number and url; everything else degrades to nil/empty.
func ExtractDetail(ctx context.Context, doc *goquery.Document, decision StageDecision, listing ListingItem, base *url.URL) (LegislationItem, error) {
	ctx, span := tracer.Start(ctx, "ExtractDetail")
	defer span.End()

	fullTitle := textutil.CollapseWhitespace(doc.Find("h1").First().Text())
	title := listing.Title
	if title == "" {
		title = fullTitle
	}
	lawNumber := listing.LawNumber
	if lawNumber == "" {
		lawNumber = ExtractLawNumber(title)
	}

	if title == "" {
		return LegislationItem{}, &ExtractionError{Url: listing.Url, Reason: "missing title"}
	}
	if lawNumber == "" {
		return LegislationItem{}, &ExtractionError{Url: listing.Url, Reason: fmt.Sprintf("no law number in title %q", title)}
	}
	if listing.Url == "" {
		return LegislationItem{}, &ExtractionError{Url: listing.Url, Reason: "missing source url"}
	}

	item := LegislationItem{
		Title:        title,
		FullTitle:    fullTitle,
		LawNumber:    lawNumber,
		Url:          listing.Url,
		Stage:        decision.Stage,
		Commission:   Unidentified,
		CommissionId: Unidentified,
		Ministry:     Unidentified,
		MinistryId:   Unidentified,
		Page:         listing.Page,
	}

	if pdf := doc.Find(`a[href$=".pdf"]`).First(); pdf.Length() > 0 {
		href := pdf.AttrOr("href", "")
		item.PdfUrl = htmlutil.AbsoluteURL(base, href)
		item.PdfFilename = path.Base(href)
	}

	bureau, commissions, transferDate, plenary := extractProcessBlocks(doc, base)

	var first *FirstReadingRecord
	if bureau != nil || len(commissions) > 0 || plenary != nil {
		first = &FirstReadingRecord{Bureau: bureau, Plenary: plenary}
		if len(commissions) > 0 {
			first.Commission = &commissions[0]
		}
	}

	switch decision.Stage {
	case StageFirstReading:
		item.FirstReading = first
	case StageSecondReading:
		// first-reading history stays on the record after transfer
		item.FirstReading = first
		second := &SecondReadingRecord{TransferDate: transferDate}
		if len(commissions) > 1 {
			second.Commission = &commissions[1]
		}
		second.Rapport = extractRapportSection(ctx, doc, base)
		item.SecondReading = second
	case StageUnknown:
		// keep whatever was extractable at the top level, leave both
		// stage records empty
	}

	if len(commissions) > 0 {
		name := commissions[0].CommissionName
		item.Commission = name
		item.CommissionId = IdentifyCommission(name)
	}

	span.SetAttributes(
		attribute.String("law_number", item.LawNumber),
		attribute.String("stage", string(item.Stage)),
	)
	return item, nil
}

// extractProcessBlocks walks the div.dp-block process sections and
// pulls out the bureau submission, the ordered commission submissions,
// the transfer date and the plenary session, tolerating any of them
// being malformed or absent.
func extractProcessBlocks(doc *goquery.Document, base *url.URL) (*BureauSubmission, []CommissionAssignment, string, *PlenarySession) {
	var bureau *BureauSubmission
	var commissions []CommissionAssignment
	var transferDate string
	var plenary *PlenarySession

	doc.Find("div.dp-block").Each(func(_ int, block *goquery.Selection) {
		text := textutil.CollapseWhitespace(block.Text())
		if text == "" {
			return
		}

		if m := transferRegex.FindStringSubmatch(text); m != nil {
			transferDate = strings.TrimSpace(m[1])
			return
		}

		if strings.Contains(text, markerBureau) {
			info := &BureauSubmission{}
			if m := sourceTextRegex.FindStringSubmatch(text); m != nil {
				info.SourceText = strings.TrimSpace(m[1])
			}
			if m := depositDateRegex.FindStringSubmatch(text); m != nil {
				info.DepositDate = strings.TrimSpace(m[1])
			}
			if strings.Contains(text, depositedTextMarker) {
				info.DepositedText = depositedTextMarker + " au Bureau de la Chambre"
				if link := block.Find(`a[href$=".pdf"]`).First(); link.Length() > 0 {
					info.PdfLink = htmlutil.AbsoluteURL(base, link.AttrOr("href", ""))
				}
			}
			bureau = info
			return
		}

		if strings.Contains(text, markerCommission) {
			m := commissionDateRegex.FindStringSubmatch(text)
			if m == nil {
				m = commissionLooseRegex.FindStringSubmatch(text)
			}
			if m != nil {
				commissions = append(commissions, CommissionAssignment{
					CommissionName: strings.TrimSpace(m[1]),
					SubmissionDate: strings.TrimSpace(m[2]),
				})
			}
			return
		}

		if strings.Contains(text, markerPlenary) {
			info := &PlenarySession{}
			if m := adoptionRegex.FindStringSubmatch(text); m != nil {
				info.AdoptionDate = strings.TrimSpace(m[1])
			}
			if m := voteRegex.FindStringSubmatch(text); m != nil {
				info.VoteResults = strings.TrimSpace(m[1])
			}
			if info.AdoptionDate != "" || info.VoteResults != "" {
				plenary = info
			}
		}
	})

	return bureau, commissions, transferDate, plenary
}

var rapportTitleRegex = regexp.MustCompile(`(?i)^rapport de`)

// findRapportHeading locates the committee report heading, trying the
// usual h3.section-title first and falling back to any heading level.
func findRapportHeading(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection

	match := func(_ int, sel *goquery.Selection) bool {
		if found != nil {
			return false
		}
		text := textutil.CollapseWhitespace(sel.Text())
		if rapportTitleRegex.MatchString(text) {
			found = sel
			return false
		}
		return true
	}

	doc.Find("h3.section-title").EachWithBreak(match)
	if found == nil {
		doc.Find("h4").EachWithBreak(match)
	}
	if found == nil {
		doc.Find("h1, h2, h3, h5, h6").EachWithBreak(match)
	}
	return found
}

func headingLevel(sel *goquery.Selection) int {
	name := goquery.NodeName(sel)
	if len(name) == 2 && name[0] == 'h' && name[1] >= '1' && name[1] <= '6' {
		return int(name[1] - '0')
	}
	return 6
}

var fileSizeRegex = regexp.MustCompile(`\((\d+(?:[.,]\d+)?\s*[KMG](?:B|o))\)`)

// extractRapportSection collects the report files that follow the
// rapport heading, stopping at the next heading of equal or higher
// level. A heading with zero files yields a section with empty Files.
func extractRapportSection(ctx context.Context, doc *goquery.Document, base *url.URL) *RapportSection {
	_, span := tracer.Start(ctx, "extractRapportSection")
	defer span.End()

	heading := findRapportHeading(doc)
	if heading == nil {
		return nil
	}

	section := &RapportSection{
		SectionTitle: textutil.CollapseWhitespace(heading.Text()),
		Files:        []RapportFile{},
	}

	level := headingLevel(heading)
	var stop []string
	for l := 1; l <= level; l++ {
		stop = append(stop, fmt.Sprintf("h%d", l))
	}
	container := heading.NextUntil(strings.Join(stop, ", "))

	anchors := container.Find(`a[href$=".pdf"]`).AddSelection(container.Filter(`a[href$=".pdf"]`))

	seen := map[string]struct{}{}
	anchors.Each(func(_ int, link *goquery.Selection) {
		href := link.AttrOr("href", "")
		fileUrl := htmlutil.AbsoluteURL(base, href)
		if _, dup := seen[fileUrl]; dup {
			return
		}
		seen[fileUrl] = struct{}{}

		file := RapportFile{
			Title:    textutil.CollapseWhitespace(link.Text()),
			Url:      fileUrl,
			Filename: path.Base(href),
		}
		// the size annotation sits in text right next to the anchor
		if m := fileSizeRegex.FindStringSubmatch(link.Parent().Text()); m != nil {
			file.Size = m[1]
		}
		section.Files = append(section.Files, file)
	})

	span.SetAttributes(
		attribute.String("section_title", section.SectionTitle),
		attribute.Int("file_count", len(section.Files)),
	)
	return section
}
