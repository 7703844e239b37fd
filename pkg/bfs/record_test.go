package bfs

import (
	"errors"
	"testing"
)

// TestEncodeDecodeRoundTrip verifies the wire format survives a
// round trip with and without neighbors
func TestEncodeDecodeRoundTrip(t *testing.T) {
	records := []VertexRecord{
		{ID: "alpha", Neighbors: []string{"beta", "gamma"}, Distance: 3, Color: Gray},
		{ID: "beta", Neighbors: nil, Distance: InfiniteDistance, Color: White},
		{ID: "gamma", Neighbors: []string{"alpha"}, Distance: 0, Color: Black},
	}

	for _, rec := range records {
		decoded, err := DecodeRecord(rec.ID, rec.Encode())
		if err != nil {
			t.Fatalf("decode %q: %v", rec.ID, err)
		}
		if decoded.ID != rec.ID || decoded.Distance != rec.Distance || decoded.Color != rec.Color {
			t.Errorf("round trip changed record: got %+v, want %+v", decoded, rec)
		}
		if len(decoded.Neighbors) != len(rec.Neighbors) {
			t.Errorf("round trip changed neighbors: got %v, want %v", decoded.Neighbors, rec.Neighbors)
		}
	}
}

// TestDecodeWireCodes verifies the exact integer color codes are
// preserved, including the gap at 2
func TestDecodeWireCodes(t *testing.T) {
	rec, err := DecodeRecord("v", "a#b|5|3")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Color != Black {
		t.Errorf("color code 3 should decode as black, got %v", rec.Color)
	}

	if White != 0 || Gray != 1 || Black != 3 {
		t.Errorf("wire codes changed: white=%d gray=%d black=%d", White, Gray, Black)
	}
}

// TestDecodeMalformedRecord verifies records with fewer than 3 fields
// report ErrMalformedRecord
func TestDecodeMalformedRecord(t *testing.T) {
	for _, value := range []string{"", "a#b", "a#b|4"} {
		_, err := DecodeRecord("v", value)
		if !errors.Is(err, ErrMalformedRecord) {
			t.Errorf("value %q: expected ErrMalformedRecord, got %v", value, err)
		}
	}
}

// TestDecodeCorruptRecord verifies non-integer distance or color
// fields report ErrCorruptRecord, not a silent drop
func TestDecodeCorruptRecord(t *testing.T) {
	for _, value := range []string{"a#b|five|1", "a#b|5|gray"} {
		_, err := DecodeRecord("v", value)
		if !errors.Is(err, ErrCorruptRecord) {
			t.Errorf("value %q: expected ErrCorruptRecord, got %v", value, err)
		}
	}
}

// TestDecodeSkipsEmptyNeighborIDs verifies empty edge entries from
// trailing or doubled separators are dropped
func TestDecodeSkipsEmptyNeighborIDs(t *testing.T) {
	rec, err := DecodeRecord("v", "a##b#|7|1")
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rec.Neighbors) != 2 || rec.Neighbors[0] != "a" || rec.Neighbors[1] != "b" {
		t.Errorf("expected neighbors [a b], got %v", rec.Neighbors)
	}
}

// TestColorDarker verifies the WHITE < GRAY < BLACK order
func TestColorDarker(t *testing.T) {
	if White.Darker(Gray) != Gray {
		t.Error("gray should be darker than white")
	}
	if Gray.Darker(Black) != Black {
		t.Error("black should be darker than gray")
	}
	if Black.Darker(White) != Black {
		t.Error("darker is not symmetric over black/white")
	}
	if Gray.Darker(Gray) != Gray {
		t.Error("darker of equal colors should be that color")
	}
}
