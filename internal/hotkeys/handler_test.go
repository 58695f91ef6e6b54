package hotkeys

import (
	"slices"
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

func TestIgnoreMaskCombinations(t *testing.T) {
	caps := uint16(xproto.ModMaskLock)
	num := uint16(xproto.ModMask2)
	scroll := uint16(xproto.ModMask5)

	tests := []struct {
		name string
		base []uint16
		want []uint16
	}{
		{"caps only", []uint16{caps}, []uint16{0, caps}},
		{"caps and numlock", []uint16{caps, num}, []uint16{0, caps, num, caps | num}},
		{
			name: "all three",
			base: []uint16{caps, num, scroll},
			want: []uint16{0, caps, num, scroll, caps | num, caps | scroll, num | scroll, caps | num | scroll},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ignoreMaskCombinations(tt.base)
			slices.Sort(got)
			want := slices.Clone(tt.want)
			slices.Sort(want)
			if !slices.Equal(got, want) {
				t.Fatalf("expected %v, got %v", want, got)
			}
		})
	}
}
