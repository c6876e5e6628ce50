package main

import (
	"bytes"
	"testing"

	"github.com/1broseidon/spacetile/internal/config"
	"github.com/1broseidon/spacetile/internal/platform"
)

func TestParseWindowID(t *testing.T) {
	tests := []struct {
		in      string
		want    platform.WindowID
		wantErr bool
	}{
		{"42:123", platform.WindowID{PID: 42, Idx: 123}, false},
		{"42:0x3a00007", platform.WindowID{PID: 42, Idx: 0x3a00007}, false},
		{"42", platform.WindowID{}, true},
		{"0:5", platform.WindowID{}, true},
		{"abc:5", platform.WindowID{}, true},
		{"7:-1", platform.WindowID{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseWindowID(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseWindowID(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Fatalf("parseWindowID(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestEncodeJSON(t *testing.T) {
	var compact, indented bytes.Buffer
	v := map[string]int{"screens": 2}
	if err := encodeJSON(&compact, v, false); err != nil {
		t.Fatalf("encodeJSON: %v", err)
	}
	if err := encodeJSON(&indented, v, true); err != nil {
		t.Fatalf("encodeJSON: %v", err)
	}
	if compact.String() != "{\"screens\":2}\n" {
		t.Fatalf("compact = %q", compact.String())
	}
	if indented.String() != "{\n  \"screens\": 2\n}\n" {
		t.Fatalf("indented = %q", indented.String())
	}
}

func TestFormatSource(t *testing.T) {
	tests := []struct {
		src  config.Source
		want string
	}{
		{config.Source{Kind: config.SourceFile, File: "/c.yaml", Line: 3, Column: 5}, "file:/c.yaml:3:5"},
		{config.Source{Kind: config.SourceFile, File: "/c.yaml"}, "file:/c.yaml"},
		{config.Source{Kind: config.SourceFile}, "file"},
		{config.Source{Kind: config.SourceDefault, Name: "defaults"}, "default:defaults"},
		{config.Source{Kind: config.SourceDefault}, "default"},
	}
	for _, tt := range tests {
		if got := formatSource(tt.src); got != tt.want {
			t.Errorf("formatSource(%+v) = %q, want %q", tt.src, got, tt.want)
		}
	}
}
