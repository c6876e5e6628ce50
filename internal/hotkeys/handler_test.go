package hotkeys

import (
	"testing"

	"github.com/BurntSushi/xgb/xproto"
)

func TestIgnoreMasks(t *testing.T) {
	caps := uint16(xproto.ModMaskLock)
	num := uint16(xproto.ModMask2)
	scroll := uint16(xproto.ModMask5)

	tests := []struct {
		name string
		base []uint16
		want []uint16
	}{
		{"caps only", []uint16{caps}, []uint16{0, caps}},
		{"caps and num lock", []uint16{caps, num}, []uint16{0, caps, num, caps | num}},
		{"all three", []uint16{caps, num, scroll}, []uint16{
			0, caps, num, caps | num, scroll, caps | scroll, num | scroll, caps | num | scroll,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ignoreMasks(tt.base)
			if len(got) != len(tt.want) {
				t.Fatalf("ignoreMasks = %v, want %v", got, tt.want)
			}
			want := make(map[uint16]bool, len(tt.want))
			for _, m := range tt.want {
				want[m] = true
			}
			for i, m := range got {
				if !want[m] {
					t.Fatalf("unexpected mask %d in %v", m, got)
				}
				if i > 0 && got[i-1] >= m {
					t.Fatalf("masks not sorted: %v", got)
				}
			}
		})
	}
}
