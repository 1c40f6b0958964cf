package chambre

import (
	"strings"

	"parlwatch-backend/lib/textutil"

	"github.com/antzucaro/matchr"
)

// Filter ids the listing form assigns to the standing commissions and
// ministries. The site exposes no machine-readable mapping, so the
// tables mirror the form options.

type lookupEntry struct {
	Id   string
	Name string
}

var commissionTable = []lookupEntry{
	{"63", "Commission des Pétitions"},
	{"64", "Commission des affaires étrangères, de la défense nationale, des affaires islamiques, des affaires de la migration et des MRE"},
	{"65", "Commission de l'intérieur, des collectivités territoriales, de l'habitat, de la politique de la ville et des affaires administratives"},
	{"66", "Commission de justice, de législation, des droits de l'homme et des libertés"},
	{"67", "Commission des finances et du développement économique"},
	{"68", "Commission des secteurs sociaux"},
	{"69", "Commission des secteurs productifs"},
	{"70", "Commission des infrastructures, de l'énergie, des mines, de l'environnement et du développement durable"},
	{"71", "Commission de l'enseignement, de la culture et de la communication"},
	{"72", "Commission du contrôle des finances publiques et de la gouvernance"},
}

var ministryTable = []lookupEntry{
	{"1", "Economie et finances"},
	{"2", "Éducation nationale"},
	{"3", "Énergie et mines"},
	{"4", "Équipement et transport"},
	{"5", "Habous et des affaires islamiques"},
	{"6", "Emploi et formation professionnelle"},
	{"7", "Enseignement supérieur, recherche scientifique et formation des cadres"},
	{"8", "Agriculture et pêche maritime"},
	{"9", "Chef du Gouvernement"},
	{"10", "Communication"},
	{"11", "Culture"},
	{"12", "Affaires étrangères et coopération"},
	{"13", "Artisanat"},
	{"14", "Énergie, mines, eau et environnement"},
	{"15", "Secrétariat Général du Gouvernement"},
	{"16", "Habitat, urbanisme et politique de la ville"},
	{"17", "Santé"},
	{"18", "Industrie, commerce et nouvelles technologies"},
	{"19", "Intérieur"},
	{"20", "Jeunesse et sports"},
	{"21", "Justice et libertés"},
	{"22", "Ministre de l'industrie, du commerce, de l'investissement et de l'économie numérique"},
	{"23", "Ministre de l'éducation nationale et de la formation professionnelle"},
	{"24", "Ministre de l'équipement, du transport et de la logistique"},
	{"25", "Ministre de l'habitat et de la politique de la ville"},
	{"26", "Ministre de l'emploi et des affaires sociales"},
	{"27", "Ministre de l'artisanat et de l'économie sociale et solidaire"},
	{"28", "Ministre chargé des marocains résidant à l'étranger et des affaires de la migration"},
	{"29", "Ministre de l'urbanisme et de l'aménagement du territoire national"},
	{"30", "Ministre chargé des relations avec le Parlement et la société civile"},
	{"31", "Solidarité, femme, famille et développement social"},
	{"32", "Tourisme"},
}

// similarityThreshold keeps the fuzzy fallback conservative: accented
// spelling drift and small typos match, unrelated names do not.
const similarityThreshold = 0.93

func identify(name string, table []lookupEntry) (string, bool) {
	normalized := textutil.NormalizeName(name)
	if normalized == "" {
		return "", false
	}

	for _, entry := range table {
		if textutil.NormalizeName(entry.Name) == normalized {
			return entry.Id, true
		}
	}
	for _, entry := range table {
		candidate := textutil.NormalizeName(entry.Name)
		if strings.Contains(candidate, normalized) || strings.Contains(normalized, candidate) {
			return entry.Id, true
		}
	}

	bestId := ""
	bestScore := 0.0
	for _, entry := range table {
		score := matchr.JaroWinkler(normalized, textutil.NormalizeName(entry.Name), false)
		if score > bestScore {
			bestScore = score
			bestId = entry.Id
		}
	}
	if bestScore >= similarityThreshold {
		return bestId, true
	}
	return "", false
}

// IdentifyCommission resolves a commission name from a detail page to
// its listing filter id, or Unidentified.
func IdentifyCommission(name string) string {
	if id, ok := identify(name, commissionTable); ok {
		return id
	}
	return Unidentified
}

// IdentifyMinistry resolves a ministry name to its filter id, or
// Unidentified.
func IdentifyMinistry(name string) string {
	if id, ok := identify(name, ministryTable); ok {
		return id
	}
	return Unidentified
}

// MinistryIds returns the filter ids in table order, for the
// ministry-enumeration pass over the listing.
func MinistryIds() []string {
	ids := make([]string, 0, len(ministryTable))
	for _, entry := range ministryTable {
		ids = append(ids, entry.Id)
	}
	return ids
}

// MinistryName returns the display name for a filter id, or "".
func MinistryName(id string) string {
	for _, entry := range ministryTable {
		if entry.Id == id {
			return entry.Name
		}
	}
	return ""
}

// CommissionName returns the display name for a filter id, or "".
func CommissionName(id string) string {
	for _, entry := range commissionTable {
		if entry.Id == id {
			return entry.Name
		}
	}
	return ""
}
