package memory

import (
	"github.com/dynastyops/capledger/internal/domain/franchise"
)

// SeedFranchises returns the twelve-team dynasty league the service boots
// with when no database is configured.
func SeedFranchises(joinedSeason int) []franchise.Franchise {
	names := []struct {
		id    string
		name  string
		owner string
	}{
		{"frn-ironhorses", "Iron Horses", "avery"},
		{"frn-nightmares", "Nightmares", "blake"},
		{"frn-tundra", "Tundra Wolves", "casey"},
		{"frn-redline", "Redline Racers", "devon"},
		{"frn-monarchs", "Monarchs", "emery"},
		{"frn-sandstorm", "Sandstorm", "finley"},
		{"frn-gridlock", "Gridlock", "harper"},
		{"frn-longshots", "Longshots", "indigo"},
		{"frn-vipers", "Pit Vipers", "jordan"},
		{"frn-wardens", "Wardens", "kai"},
		{"frn-outlaws", "Outlaws", "lennox"},
		{"frn-summit", "Summit Seekers", "morgan"},
	}

	out := make([]franchise.Franchise, 0, len(names))
	for _, n := range names {
		out = append(out, franchise.Franchise{
			ID:           n.id,
			Name:         n.name,
			Owner:        n.owner,
			JoinedSeason: joinedSeason,
		})
	}

	return out
}
