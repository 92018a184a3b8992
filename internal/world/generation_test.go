package world

import "testing"

func TestGenerateDeterministic(t *testing.T) {
	cfg := SmallTestConfig()
	a, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if a.Backing() != BackingNoise || a.Scale() != NoiseScale || a.Seed() != cfg.Seed {
		t.Fatalf("unexpected field metadata %s scale=%v seed=%d", a, a.Scale(), a.Seed())
	}
	for r := 0; r < cfg.Rows; r++ {
		for c := 0; c < cfg.Columns; c++ {
			pos := Coord{Row: r, Col: c}
			ha, _ := a.Height(pos)
			hb, _ := b.Height(pos)
			if ha != hb {
				t.Fatalf("seed %d produced %v and %v at %s", cfg.Seed, ha, hb, pos)
			}
		}
	}
}

func TestGenerateRandomSeed(t *testing.T) {
	cfg := SmallTestConfig()
	cfg.Seed = 0
	f, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if f.Seed() == 0 {
		t.Fatal("expected a random seed to be chosen")
	}
}

func TestGenerateRejectsEmptyGrid(t *testing.T) {
	cfg := SmallTestConfig()
	cfg.Rows = 0
	if _, err := Generate(cfg); err == nil {
		t.Fatal("expected error for zero rows")
	}
}

func TestGenerateSeaLevelShift(t *testing.T) {
	cfg := SmallTestConfig()
	cfg.SeaLevel = -5 // everything lifted far above water
	f, err := Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if s := TerrainCounts(f); s.Submerged != 0 {
		t.Fatalf("expected no water, got %d submerged cells", s.Submerged)
	}

	cfg.SeaLevel = 5
	f, err = Generate(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if s := TerrainCounts(f); s.Solid != 0 {
		t.Fatalf("expected all water, got %d solid cells", s.Solid)
	}
}
