// EvacuationHub - Multi-Source Disaster Intelligence and Safe Routing
// Copyright 2026 EvacuationHub Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/myr0nl/EvacuationHub-sub000

package routing

import (
	"fmt"
	"math"
	"strings"
)

// decodeGooglePolyline decodes Google's encoded polyline format into
// [lon, lat] pairs at 1e-5 precision.
func decodeGooglePolyline(encoded string) ([][]float64, error) {
	var coords [][]float64
	lat, lon := 0, 0
	i := 0
	for i < len(encoded) {
		dLat, n, err := decodeGoogleValue(encoded[i:])
		if err != nil {
			return nil, err
		}
		i += n
		dLon, n, err := decodeGoogleValue(encoded[i:])
		if err != nil {
			return nil, err
		}
		i += n

		lat += dLat
		lon += dLon
		coords = append(coords, []float64{float64(lon) / 1e5, float64(lat) / 1e5})
	}
	return coords, nil
}

func decodeGoogleValue(s string) (int, int, error) {
	result, shift := 0, 0
	for i := 0; i < len(s); i++ {
		b := int(s[i]) - 63
		if b < 0 {
			return 0, 0, fmt.Errorf("invalid polyline byte %q", s[i])
		}
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			value := result >> 1
			if result&1 != 0 {
				value = ^value
			}
			return value, i + 1, nil
		}
	}
	return 0, 0, fmt.Errorf("truncated polyline value")
}

// flexpolyChars is the HERE flexible-polyline symbol table.
const flexpolyChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

var flexpolyIndex = func() [128]int8 {
	var table [128]int8
	for i := range table {
		table[i] = -1
	}
	for i, c := range flexpolyChars {
		table[c] = int8(i)
	}
	return table
}()

// decodeFlexiblePolyline decodes HERE's flexible polyline format into
// [lon, lat] pairs. Third-dimension values (elevation) are consumed and
// discarded.
func decodeFlexiblePolyline(encoded string) ([][]float64, error) {
	values, err := decodeFlexpolyUnsigned(encoded)
	if err != nil {
		return nil, err
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("flexible polyline too short")
	}
	if values[0] != 1 {
		return nil, fmt.Errorf("unsupported flexible polyline version %d", values[0])
	}
	header := values[1]
	precision := header & 15
	thirdDim := (header >> 4) & 7

	scale := math.Pow10(int(precision))
	stride := 2
	if thirdDim > 0 {
		stride = 3
	}

	payload := values[2:]
	if len(payload)%stride != 0 {
		return nil, fmt.Errorf("flexible polyline payload not a multiple of %d", stride)
	}

	var coords [][]float64
	var lat, lon int64
	for i := 0; i < len(payload); i += stride {
		lat += zigzagDecode(payload[i])
		lon += zigzagDecode(payload[i+1])
		coords = append(coords, []float64{float64(lon) / scale, float64(lat) / scale})
	}
	return coords, nil
}

func decodeFlexpolyUnsigned(encoded string) ([]int64, error) {
	var values []int64
	var current int64
	shift := 0
	for _, c := range encoded {
		if c >= 128 || flexpolyIndex[c] < 0 {
			return nil, fmt.Errorf("invalid flexible polyline character %q", c)
		}
		v := int64(flexpolyIndex[c])
		current |= (v & 0x1f) << shift
		if v&0x20 == 0 {
			values = append(values, current)
			current, shift = 0, 0
		} else {
			shift += 5
		}
	}
	if shift != 0 {
		return nil, fmt.Errorf("truncated flexible polyline")
	}
	return values, nil
}

func zigzagDecode(v int64) int64 {
	return (v >> 1) ^ -(v & 1)
}

// stripHTMLTags removes markup from turn instructions; the baseline
// provider embeds <b> and <div> tags in its instruction text.
func stripHTMLTags(s string) string {
	var b strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
