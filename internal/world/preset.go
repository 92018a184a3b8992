package world

// valleyHeights is a 12×12 valley between two ridges, with a river along
// the floor and a one-cell bridge across it at row 3.
var valleyHeights = [12][12]int{
	{5, 4, 3, 2, 1, 0, 0, 1, 2, 3, 4, 4},
	{5, 4, 3, 2, 1, 0, 0, 1, 2, 3, 4, 5},
	{6, 5, 4, 3, 2, 1, 0, 0, 1, 2, 3, 6},
	{5, 4, 3, 2, 1, 1, 2, 0, 0, 3, 4, 7},
	{5, 4, 3, 2, 1, 1, 0, 0, 3, 4, 7, 7},
	{6, 4, 3, 2, 1, 0, 0, 1, 2, 3, 4, 7},
	{7, 4, 3, 2, 1, 0, 0, 1, 2, 3, 4, 7},
	{8, 4, 3, 2, 1, 1, 0, 0, 2, 3, 4, 7},
	{7, 4, 3, 2, 1, 1, 1, 0, 0, 3, 4, 7},
	{6, 4, 3, 2, 1, 0, 0, 0, 0, 0, 4, 6},
	{6, 4, 3, 2, 1, 0, 0, 0, 0, 0, 3, 5},
	{5, 4, 3, 2, 1, 0, 0, 0, 1, 2, 3, 4},
}

// ValleyHeights returns a fresh copy of the valley preset.
func ValleyHeights() [][]int {
	out := make([][]int, len(valleyHeights))
	for r := range valleyHeights {
		out[r] = append([]int(nil), valleyHeights[r][:]...)
	}
	return out
}

// Valley returns the valley preset as a table-backed field.
func Valley() *Field {
	f, err := NewTableField(ValleyHeights())
	if err != nil {
		panic(err) // preset is well-formed
	}
	return f
}
