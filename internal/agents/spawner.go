// Scout spawning: deterministic placement of a scout party on dry land.
package agents

import (
	"fmt"
	"math/rand"

	"github.com/talgya/ridgewalk/internal/world"
)

// Spawner creates scouts with sequential IDs at seeded random positions.
type Spawner struct {
	rng    *rand.Rand
	nextID ScoutID
}

// NewSpawner creates a scout spawner with the given seed.
func NewSpawner(seed int64) *Spawner {
	return &Spawner{
		rng:    rand.New(rand.NewSource(seed + 300)),
		nextID: 1,
	}
}

// SetNextID sets the next scout ID to be issued (used when restoring from DB).
func (s *Spawner) SetNextID(id ScoutID) {
	s.nextID = id
}

// SpawnScouts places n scouts on distinct dry cells of f, each with a
// random heading.
func (s *Spawner) SpawnScouts(f *world.Field, n int) ([]*Scout, error) {
	var dry []world.Coord
	for r := 0; r < f.Rows(); r++ {
		for c := 0; c < f.Columns(); c++ {
			pos := world.Coord{Row: r, Col: c}
			if sub, _ := f.IsSubmerged(pos); !sub {
				dry = append(dry, pos)
			}
		}
	}
	if len(dry) < n {
		return nil, fmt.Errorf("spawn %d scouts: only %d dry cells", n, len(dry))
	}

	s.rng.Shuffle(len(dry), func(i, j int) {
		dry[i], dry[j] = dry[j], dry[i]
	})

	scouts := make([]*Scout, 0, n)
	for i := 0; i < n; i++ {
		facing := world.AllDirections()[s.rng.Intn(4)]
		sc, err := s.SpawnAt(f, dry[i], facing)
		if err != nil {
			return nil, err
		}
		scouts = append(scouts, sc)
	}
	return scouts, nil
}

// SpawnAt creates one scout at a chosen cell.
func (s *Spawner) SpawnAt(terrain Terrain, at world.Coord, facing world.Direction) (*Scout, error) {
	sc, err := NewScout(s.nextID, s.generateName(), at, facing, terrain)
	if err != nil {
		return nil, err
	}
	s.nextID++
	return sc, nil
}

func (s *Spawner) generateName() string {
	first := callsigns[s.rng.Intn(len(callsigns))]
	last := surnames[s.rng.Intn(len(surnames))]
	return first + " " + last
}

var callsigns = []string{
	"Ash", "Birch", "Cairn", "Dale", "Ember", "Fen", "Gale", "Heath",
	"Iris", "Juniper", "Kestrel", "Lark", "Moss", "Nettle", "Orrin", "Pike",
	"Quill", "Rook", "Sorrel", "Tarn", "Umber", "Vale", "Wren", "Yarrow",
}

var surnames = []string{
	"Ridgeway", "Stonebrook", "Fellside", "Highmoor", "Lowater", "Crag",
	"Scarfield", "Tumble", "Coombe", "Beck", "Holloway", "Sedge",
}
