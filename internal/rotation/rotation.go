// Package rotation maps a sensor mounting selector to the direction cosine
// matrix that takes sensor-frame vectors into the vehicle body frame.
package rotation

import (
	"fmt"
	"math"
	"strconv"

	"gonum.org/v1/gonum/mat"
)

// Rotation selects one of the supported sensor mounting orientations.
type Rotation uint8

const (
	None Rotation = iota
	Yaw45
	Yaw90
	Yaw135
	Yaw180
	Yaw225
	Yaw270
	Yaw315
	Roll180
	Roll180Yaw45
	Roll180Yaw90
	Roll180Yaw135
	Pitch180
	Roll180Yaw225
	Roll180Yaw270
	Roll180Yaw315
	Roll90
	Roll90Yaw45
	Roll90Yaw90
	Roll90Yaw135
	Roll270
	Roll270Yaw45
	Roll270Yaw90
	Roll270Yaw135
	Pitch90
	Pitch270
	Pitch180Yaw90
	Pitch180Yaw270
	Roll90Pitch90
	Roll180Pitch90
	Roll270Pitch90
	Roll90Pitch180
	Roll270Pitch180
	Roll90Pitch270
	Roll180Pitch270
	Roll270Pitch270
	Roll90Pitch180Yaw90
	Roll90Yaw270
	Roll90Pitch68Yaw293
	Pitch315
	Roll90Pitch315

	numRotations
)

type euler struct {
	name             string
	roll, pitch, yaw float64 // degrees
}

var table = [numRotations]euler{
	None:                {"NONE", 0, 0, 0},
	Yaw45:               {"YAW_45", 0, 0, 45},
	Yaw90:               {"YAW_90", 0, 0, 90},
	Yaw135:              {"YAW_135", 0, 0, 135},
	Yaw180:              {"YAW_180", 0, 0, 180},
	Yaw225:              {"YAW_225", 0, 0, 225},
	Yaw270:              {"YAW_270", 0, 0, 270},
	Yaw315:              {"YAW_315", 0, 0, 315},
	Roll180:             {"ROLL_180", 180, 0, 0},
	Roll180Yaw45:        {"ROLL_180_YAW_45", 180, 0, 45},
	Roll180Yaw90:        {"ROLL_180_YAW_90", 180, 0, 90},
	Roll180Yaw135:       {"ROLL_180_YAW_135", 180, 0, 135},
	Pitch180:            {"PITCH_180", 0, 180, 0},
	Roll180Yaw225:       {"ROLL_180_YAW_225", 180, 0, 225},
	Roll180Yaw270:       {"ROLL_180_YAW_270", 180, 0, 270},
	Roll180Yaw315:       {"ROLL_180_YAW_315", 180, 0, 315},
	Roll90:              {"ROLL_90", 90, 0, 0},
	Roll90Yaw45:         {"ROLL_90_YAW_45", 90, 0, 45},
	Roll90Yaw90:         {"ROLL_90_YAW_90", 90, 0, 90},
	Roll90Yaw135:        {"ROLL_90_YAW_135", 90, 0, 135},
	Roll270:             {"ROLL_270", 270, 0, 0},
	Roll270Yaw45:        {"ROLL_270_YAW_45", 270, 0, 45},
	Roll270Yaw90:        {"ROLL_270_YAW_90", 270, 0, 90},
	Roll270Yaw135:       {"ROLL_270_YAW_135", 270, 0, 135},
	Pitch90:             {"PITCH_90", 0, 90, 0},
	Pitch270:            {"PITCH_270", 0, 270, 0},
	Pitch180Yaw90:       {"PITCH_180_YAW_90", 0, 180, 90},
	Pitch180Yaw270:      {"PITCH_180_YAW_270", 0, 180, 270},
	Roll90Pitch90:       {"ROLL_90_PITCH_90", 90, 90, 0},
	Roll180Pitch90:      {"ROLL_180_PITCH_90", 180, 90, 0},
	Roll270Pitch90:      {"ROLL_270_PITCH_90", 270, 90, 0},
	Roll90Pitch180:      {"ROLL_90_PITCH_180", 90, 180, 0},
	Roll270Pitch180:     {"ROLL_270_PITCH_180", 270, 180, 0},
	Roll90Pitch270:      {"ROLL_90_PITCH_270", 90, 270, 0},
	Roll180Pitch270:     {"ROLL_180_PITCH_270", 180, 270, 0},
	Roll270Pitch270:     {"ROLL_270_PITCH_270", 270, 270, 0},
	Roll90Pitch180Yaw90: {"ROLL_90_PITCH_180_YAW_90", 90, 180, 90},
	Roll90Yaw270:        {"ROLL_90_YAW_270", 90, 0, 270},
	Roll90Pitch68Yaw293: {"ROLL_90_PITCH_68_YAW_293", 90, 68, 293},
	Pitch315:            {"PITCH_315", 0, 315, 0},
	Roll90Pitch315:      {"ROLL_90_PITCH_315", 90, 315, 0},
}

// Valid reports whether r names a known rotation.
func (r Rotation) Valid() bool { return r < numRotations }

func (r Rotation) String() string {
	if !r.Valid() {
		return fmt.Sprintf("ROTATION(%d)", uint8(r))
	}
	return table[r].name
}

// Parse accepts either the rotation name (e.g. "ROLL_180_YAW_90") or its
// numeric selector.
func Parse(s string) (Rotation, error) {
	for i := Rotation(0); i < numRotations; i++ {
		if table[i].name == s {
			return i, nil
		}
	}
	if n, err := strconv.Atoi(s); err == nil && n >= 0 && n < int(numRotations) {
		return Rotation(n), nil
	}
	return 0, fmt.Errorf("rotation: unknown rotation %q", s)
}

func (r Rotation) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("rotation: invalid selector %d", uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText accepts anything Parse does, so config files may use either
// the name or the number.
func (r *Rotation) UnmarshalText(b []byte) error {
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// Matrix is a row-major 3x3 direction cosine matrix.
type Matrix [3][3]float64

// Identity is the matrix for None.
var Identity = Matrix{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

// Apply returns m*v.
func (m *Matrix) Apply(v [3]float64) [3]float64 {
	return [3]float64{
		m[0][0]*v[0] + m[0][1]*v[1] + m[0][2]*v[2],
		m[1][0]*v[0] + m[1][1]*v[1] + m[1][2]*v[2],
		m[2][0]*v[0] + m[2][1]*v[1] + m[2][2]*v[2],
	}
}

// dense copies m into a gonum matrix.
func (m *Matrix) dense() *mat.Dense {
	d := mat.NewDense(3, 3, nil)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			d.Set(i, j, m[i][j])
		}
	}
	return d
}

// DCM returns the body-from-sensor matrix for r, built as Rz(yaw)*Ry(pitch)*Rx(roll).
// Entries within 1e-12 of an integer are snapped so quarter-turn rotations are exact.
func (r Rotation) DCM() (Matrix, error) {
	if !r.Valid() {
		return Matrix{}, fmt.Errorf("rotation: invalid selector %d", uint8(r))
	}
	e := table[r]
	phi := e.roll * math.Pi / 180
	theta := e.pitch * math.Pi / 180
	psi := e.yaw * math.Pi / 180

	rx := mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, math.Cos(phi), -math.Sin(phi),
		0, math.Sin(phi), math.Cos(phi),
	})
	ry := mat.NewDense(3, 3, []float64{
		math.Cos(theta), 0, math.Sin(theta),
		0, 1, 0,
		-math.Sin(theta), 0, math.Cos(theta),
	})
	rz := mat.NewDense(3, 3, []float64{
		math.Cos(psi), -math.Sin(psi), 0,
		math.Sin(psi), math.Cos(psi), 0,
		0, 0, 1,
	})

	var d mat.Dense
	d.Product(rz, ry, rx)

	var m Matrix
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			v := d.At(i, j)
			if rv := math.Round(v); math.Abs(v-rv) < 1e-12 {
				v = rv + 0 // drop negative zero
			}
			m[i][j] = v
		}
	}
	return m, nil
}
