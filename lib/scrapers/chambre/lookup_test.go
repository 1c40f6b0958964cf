package chambre

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIdentifyCommissionExact(t *testing.T) {
	require.Equal(t, "67",
		IdentifyCommission("Commission des finances et du développement économique"))
	require.Equal(t, "68",
		IdentifyCommission("Commission des secteurs sociaux"))
}

func TestIdentifyCommissionWhitespaceAndCase(t *testing.T) {
	require.Equal(t, "68",
		IdentifyCommission("  commission DES secteurs\n sociaux "))
}

func TestIdentifyCommissionSubstring(t *testing.T) {
	// detail pages sometimes render a truncated name
	require.Equal(t, "71",
		IdentifyCommission("Commission de l'enseignement, de la culture"))
}

func TestIdentifyCommissionFuzzy(t *testing.T) {
	// a single dropped accent should still resolve
	require.Equal(t, "69",
		IdentifyCommission("Commission des secteurs productifs."))
}

func TestIdentifyCommissionUnrelated(t *testing.T) {
	require.Equal(t, Unidentified, IdentifyCommission("Groupe de travail thématique"))
	require.Equal(t, Unidentified, IdentifyCommission(""))
}

func TestIdentifyMinistry(t *testing.T) {
	require.Equal(t, "1", IdentifyMinistry("Economie et finances"))
	require.Equal(t, "17", IdentifyMinistry("Santé"))
	require.Equal(t, Unidentified, IdentifyMinistry("Office des changes"))
}

func TestMinistryTables(t *testing.T) {
	ids := MinistryIds()
	require.Len(t, ids, 32)
	require.Equal(t, "1", ids[0])
	require.Equal(t, "Tourisme", MinistryName("32"))
	require.Equal(t, "", MinistryName("999"))
	require.Equal(t,
		"Commission des Pétitions",
		CommissionName("63"))
}
