package discovery

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestServiceTXT_Encode(t *testing.T) {
	tests := []struct {
		name string
		txt  ServiceTXT
		want []string
	}{
		{"defaults", ServiceTXT{}, []string{"v=1", "path=/", "tls=0"}},
		{"full", ServiceTXT{Variant: "call", Path: "/app/", TLS: true}, []string{"v=1", "variant=call", "path=/app/", "tls=1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.txt.Encode()); diff != "" {
				t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseTXT(t *testing.T) {
	got := ParseTXT([]string{"a=1", "b=", "=x", "noequals", "c=d=e"})
	want := map[string]string{"a": "1", "b": "", "c": "d=e"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ParseTXT() mismatch (-want +got):\n%s", diff)
	}
}

func TestParseServiceTXT(t *testing.T) {
	tests := []struct {
		name    string
		records []string
		want    ServiceTXT
		wantErr bool
	}{
		{"round trip", ServiceTXT{Variant: "room", Path: "/r", TLS: true}.Encode(), ServiceTXT{Variant: "room", Path: "/r", TLS: true}, false},
		{"empty", nil, ServiceTXT{Path: "/"}, false},
		{"future version", []string{"v=2"}, ServiceTXT{}, true},
		{"relative path", []string{"path=room"}, ServiceTXT{}, true},
		{"bad tls", []string{"tls=yes"}, ServiceTXT{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServiceTXT(tt.records)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidTXTRecord) {
					t.Errorf("ParseServiceTXT() error = %v, want %v", err, ErrInvalidTXTRecord)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseServiceTXT() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseServiceTXT() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
