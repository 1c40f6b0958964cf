package chambre

import (
	"strings"

	"parlwatch-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// Stage is the reading stage a bill is currently in. The site labels
// them "Lecture 1" and "Lecture 2".
type Stage string

const (
	StageFirstReading  Stage = "Lecture 1"
	StageSecondReading Stage = "Lecture 2"
	StageUnknown       Stage = "Unknown"
)

// structural markers inside div.dp-block process sections
const (
	markerBureau     = "Bureau de la Chambre"
	markerTransfer   = "Il a été transféré à la Chambre le"
	markerCommission = "Soumis à"
	markerPlenary    = "Séance plénière"
)

// StageDecision records which process sections were recognized on a
// detail page and the stage they imply.
type StageDecision struct {
	Stage Stage

	HasBureau     bool
	HasCommission bool
	HasTransfer   bool
	HasPlenary    bool
	HasRapport    bool
}

// Classify inspects the structural markers of a detail page and decides
// the reading stage. A transfer section (or a published rapport, which
// only appears after transfer) supersedes first-reading markers; a page
// with no recognizable section at all is Unknown, never an error.
//
// Pure over the document contents so it can be pinned down with markup
// fixtures.
func Classify(doc *goquery.Document) StageDecision {
	var d StageDecision

	doc.Find("div.dp-block").Each(func(_ int, block *goquery.Selection) {
		text := textutil.CollapseWhitespace(block.Text())
		if text == "" {
			return
		}
		if strings.Contains(text, markerTransfer) {
			d.HasTransfer = true
		} else if strings.Contains(text, markerBureau) {
			d.HasBureau = true
		}
		if strings.Contains(text, markerCommission) {
			d.HasCommission = true
		}
		if strings.Contains(text, markerPlenary) {
			d.HasPlenary = true
		}
	})

	if heading := findRapportHeading(doc); heading != nil {
		d.HasRapport = true
	}

	switch {
	case d.HasTransfer || d.HasRapport:
		d.Stage = StageSecondReading
	case d.HasBureau || d.HasCommission || d.HasPlenary:
		d.Stage = StageFirstReading
	default:
		d.Stage = StageUnknown
	}
	return d
}
