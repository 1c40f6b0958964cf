package legislation

import (
	"testing"

	"parlwatch-backend/lib/scrapers/chambre"

	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	store := NewStore(t.TempDir(), "2024-2025")
	store.Put(chambre.LegislationItem{LawNumber: "03.25"})

	testCases := []struct {
		lawNumber string
		force     bool
		expected  Decision
	}{
		{"03.25", false, Skip},
		{"03.25", true, Replace},
		{"99.99", false, Insert},
		{"99.99", true, Insert},
	}
	for _, test := range testCases {
		require.Equal(t, test.expected, Decide(store, test.lawNumber, test.force),
			"law=%s force=%v", test.lawNumber, test.force)
	}
}
