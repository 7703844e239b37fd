package bfs

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Color marks how far the traversal has progressed at a vertex:
// WHITE = unseen, GRAY = discovered but not expanded, BLACK = expanded.
// The integer values are fixed wire codes; 2 is unused and is never
// produced.
type Color int

const (
	White Color = 0
	Gray  Color = 1
	Black Color = 3
)

// InfiniteDistance marks a vertex that has not been reached yet.
const InfiniteDistance = math.MaxInt32

const (
	// FieldSep separates the EDGES, DISTANCE and COLOR fields on the
	// wire. Vertex ids are normalized so they can never contain it.
	FieldSep = "|"

	// EdgeSep joins neighbor ids inside the EDGES field. Wiki titles
	// cannot contain '#', so it is safe as a separator.
	EdgeSep = "#"
)

// ErrMalformedRecord reports a record with fewer than the three
// required fields. Callers drop these records rather than failing.
var ErrMalformedRecord = errors.New("record has fewer than 3 fields")

// ErrCorruptRecord reports a record whose distance or color field is
// present but not an integer. Unlike a missing field this indicates
// corruption, so callers must fail the task.
var ErrCorruptRecord = errors.New("record field is not an integer")

// Darker returns the darker of two colors (WHITE < GRAY < BLACK).
func (c Color) Darker(other Color) Color {
	if other > c {
		return other
	}
	return c
}

// String returns a human-readable color name for logging.
func (c Color) String() string {
	switch c {
	case White:
		return "white"
	case Gray:
		return "gray"
	case Black:
		return "black"
	default:
		return fmt.Sprintf("color(%d)", int(c))
	}
}

// VertexRecord is the unit of state for one graph vertex. Exactly one
// record per vertex carries its outbound edge set; discovery records
// injected by Propagate carry an empty one.
type VertexRecord struct {
	ID        string
	Neighbors []string
	Distance  int
	Color     Color
}

// Encode serializes the record value as EDGES|DISTANCE|COLOR. The id
// travels separately as the record key.
func (r VertexRecord) Encode() string {
	var b strings.Builder
	for i, n := range r.Neighbors {
		if i > 0 {
			b.WriteString(EdgeSep)
		}
		b.WriteString(n)
	}
	b.WriteString(FieldSep)
	b.WriteString(strconv.Itoa(r.Distance))
	b.WriteString(FieldSep)
	b.WriteString(strconv.Itoa(int(r.Color)))
	return b.String()
}

// DecodeRecord parses an EDGES|DISTANCE|COLOR value for the given
// vertex id. It returns ErrMalformedRecord when fewer than three
// fields are present and ErrCorruptRecord when the distance or color
// field is not an integer.
func DecodeRecord(id, value string) (VertexRecord, error) {
	fields := strings.Split(value, FieldSep)
	if len(fields) < 3 {
		return VertexRecord{}, ErrMalformedRecord
	}

	distance, err := strconv.Atoi(fields[1])
	if err != nil {
		return VertexRecord{}, fmt.Errorf("%w: distance %q", ErrCorruptRecord, fields[1])
	}

	color, err := strconv.Atoi(fields[2])
	if err != nil {
		return VertexRecord{}, fmt.Errorf("%w: color %q", ErrCorruptRecord, fields[2])
	}

	var neighbors []string
	for _, n := range strings.Split(fields[0], EdgeSep) {
		if n != "" {
			neighbors = append(neighbors, n)
		}
	}

	return VertexRecord{
		ID:        id,
		Neighbors: neighbors,
		Distance:  distance,
		Color:     Color(color),
	}, nil
}
