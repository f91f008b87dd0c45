package terrain

// Band is an altitude band used to colour terrain. Bands are ordered from the
// lowest to the highest altitude.
type Band uint8

const (
	BandVoid Band = iota
	BandGrass
	BandDirt
	BandRock

	bandCount = 4
)

// String implements fmt.Stringer.
func (b Band) String() string {
	switch b {
	case BandVoid:
		return "void"
	case BandGrass:
		return "grass"
	case BandDirt:
		return "dirt"
	case BandRock:
		return "rock"
	}
	return "unknown"
}
