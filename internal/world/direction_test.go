package world

import (
	"encoding/json"
	"testing"
)

func TestResolveTable(t *testing.T) {
	cases := []struct {
		facing Direction
		view   Horizon
		want   Direction
	}{
		{North, Forward, North}, {North, Left, West}, {North, Right, East},
		{East, Forward, East}, {East, Left, North}, {East, Right, South},
		{South, Forward, South}, {South, Left, East}, {South, Right, West},
		{West, Forward, West}, {West, Left, South}, {West, Right, North},
	}
	for _, tc := range cases {
		if got := Resolve(tc.facing, tc.view); got != tc.want {
			t.Fatalf("Resolve(%s, %s) = %s, want %s", tc.facing, tc.view, got, tc.want)
		}
	}
}

func TestResolveMatchesRotation(t *testing.T) {
	for _, d := range AllDirections() {
		if Resolve(d, Forward) != d {
			t.Fatalf("forward from %s changed heading", d)
		}
		if Resolve(d, Right) != RotateRight(d) {
			t.Fatalf("right view from %s disagrees with RotateRight", d)
		}
		if Resolve(d, Left) != RotateLeft(d) {
			t.Fatalf("left view from %s disagrees with RotateLeft", d)
		}
	}
}

func TestRotationInverseAndCycle(t *testing.T) {
	for _, d := range AllDirections() {
		if got := RotateLeft(RotateRight(d)); got != d {
			t.Fatalf("RotateLeft(RotateRight(%s)) = %s", d, got)
		}
		if got := RotateRight(RotateLeft(d)); got != d {
			t.Fatalf("RotateRight(RotateLeft(%s)) = %s", d, got)
		}
		r, l := d, d
		for i := 0; i < 4; i++ {
			r = RotateRight(r)
			l = RotateLeft(l)
		}
		if r != d || l != d {
			t.Fatalf("four turns from %s ended at right=%s left=%s", d, r, l)
		}
	}
	if RotateRight(North) != East || RotateRight(West) != North {
		t.Fatal("right rotation does not follow N→E→S→W")
	}
}

func TestDeltaTable(t *testing.T) {
	origin := Coord{Row: 5, Col: 5}
	want := map[Direction]Coord{
		North: {Row: 6, Col: 5},
		East:  {Row: 5, Col: 6},
		South: {Row: 4, Col: 5},
		West:  {Row: 5, Col: 4},
	}
	for d, c := range want {
		if got := origin.Translate(d, 1); got != c {
			t.Fatalf("%s step from %s = %s, want %s", d, origin, got, c)
		}
	}
	if got := origin.Translate(West, 3); got != (Coord{Row: 5, Col: 2}) {
		t.Fatalf("three steps west = %s", got)
	}
}

func TestParseDirection(t *testing.T) {
	for in, want := range map[string]Direction{"north": North, "E": East, " South ": South, "w": West} {
		got, err := ParseDirection(in)
		if err != nil || got != want {
			t.Fatalf("ParseDirection(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseDirection("up"); err == nil {
		t.Fatal("expected error for unknown direction")
	}
}

func TestDirectionJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Facing Direction `json:"facing"`
	}{South})
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"facing":"South"}` {
		t.Fatalf("unexpected encoding %s", data)
	}
	var back struct {
		Facing Direction `json:"facing"`
	}
	if err := json.Unmarshal(data, &back); err != nil || back.Facing != South {
		t.Fatalf("round trip gave %s, %v", back.Facing, err)
	}
}

func TestGlyph(t *testing.T) {
	want := map[Direction]rune{North: '^', East: '>', South: 'v', West: '<'}
	for d, g := range want {
		if d.Glyph() != g {
			t.Errorf("%s glyph = %q", d, d.Glyph())
		}
	}
}
