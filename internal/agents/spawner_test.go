package agents

import (
	"testing"

	"github.com/talgya/ridgewalk/internal/world"
)

func TestSpawnScouts(t *testing.T) {
	f := world.Valley()
	scouts, err := NewSpawner(7).SpawnScouts(f, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(scouts) != 5 {
		t.Fatalf("got %d scouts", len(scouts))
	}
	seen := map[world.Coord]bool{}
	for i, s := range scouts {
		if s.ID != ScoutID(i+1) {
			t.Fatalf("scout %d has id %d", i, s.ID)
		}
		if s.Name == "" {
			t.Fatalf("scout %d has no name", s.ID)
		}
		if sub, _ := f.IsSubmerged(s.Position()); sub {
			t.Fatalf("scout %d spawned in water at %s", s.ID, s.Position())
		}
		if seen[s.Position()] {
			t.Fatalf("two scouts share %s", s.Position())
		}
		seen[s.Position()] = true
	}
}

func TestSpawnDeterministic(t *testing.T) {
	f := world.Valley()
	a, err := NewSpawner(11).SpawnScouts(f, 3)
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewSpawner(11).SpawnScouts(f, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i].State() != b[i].State() || a[i].Name != b[i].Name {
			t.Fatalf("scout %d differs: %+v vs %+v", i, a[i].State(), b[i].State())
		}
	}
}

func TestSpawnTooMany(t *testing.T) {
	if _, err := NewSpawner(1).SpawnScouts(world.Valley(), 200); err == nil {
		t.Fatal("expected error when there are not enough dry cells")
	}
}

func TestSpawnerNextID(t *testing.T) {
	sp := NewSpawner(1)
	sp.SetNextID(40)
	s, err := sp.SpawnAt(world.Valley(), world.Coord{Row: 0, Col: 0}, world.North)
	if err != nil {
		t.Fatal(err)
	}
	if s.ID != 40 {
		t.Fatalf("id = %d, want 40", s.ID)
	}
}
