package session

import (
	"math/rand"
	"strings"

	"github.com/VelonacepsCalyxEggs/PPMusicBot-sub000/internal/domain/entities"
)

// ShuffleAlgorithm selects one of the supported queue shuffles
type ShuffleAlgorithm string

const (
	ShuffleFisherYates ShuffleAlgorithm = "fisher-yates"
	ShuffleDurstenfeld ShuffleAlgorithm = "durstenfeld"
	ShuffleSattolo     ShuffleAlgorithm = "sattolo"
)

// ParseShuffleAlgorithm maps a user-supplied name to an algorithm.
// Unrecognized or empty input falls back to Fisher-Yates.
func ParseShuffleAlgorithm(name string) ShuffleAlgorithm {
	switch ShuffleAlgorithm(strings.ToLower(strings.TrimSpace(name))) {
	case ShuffleDurstenfeld:
		return ShuffleDurstenfeld
	case ShuffleSattolo:
		return ShuffleSattolo
	default:
		return ShuffleFisherYates
	}
}

// shuffleTracks returns a shuffled copy of tracks; the input is not modified.
func shuffleTracks(tracks []*entities.Track, algo ShuffleAlgorithm) []*entities.Track {
	out := make([]*entities.Track, len(tracks))
	copy(out, tracks)

	switch algo {
	case ShuffleSattolo:
		sattolo(out)
	default:
		// Fisher-Yates and Durstenfeld are the same modern swap loop
		fisherYates(out)
	}
	return out
}

// fisherYates swaps index i with a uniform j in [0, i]
func fisherYates(tracks []*entities.Track) {
	for i := len(tracks) - 1; i > 0; i-- {
		j := rand.Intn(i + 1)
		tracks[i], tracks[j] = tracks[j], tracks[i]
	}
}

// sattolo swaps index i with a uniform j in [0, i), strictly below i, which
// always produces a cyclic permutation with no fixed points
func sattolo(tracks []*entities.Track) {
	for i := len(tracks) - 1; i > 0; i-- {
		j := rand.Intn(i)
		tracks[i], tracks[j] = tracks[j], tracks[i]
	}
}
