package commands

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cbegin/eqlink-go/internal/eq"
)

func run(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.String()
}

func TestParseFilter(t *testing.T) {
	tests := []struct {
		in   string
		want eq.Filter
	}{
		{"peak:1000:-7.5:1.4", eq.Filter{Type: eq.TypePeak, F: 1000, G: -7.5, Q: 1.4}},
		{"crossover:80", eq.Filter{Type: eq.TypeCrossover, F: 80, Q: 0.71}},
		{"Loudness::6", eq.Filter{Type: eq.TypeLoudness, F: 1000, G: 6, Q: 0.71}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseFilter(tt.in)
			if err != nil {
				t.Fatalf("parseFilter() error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("parseFilter() = %v, want %v", got, tt.want)
			}
		})
	}
	for _, bad := range []string{"invalid:1", "boost:1000", "peak:x", "peak:1:2:3:4"} {
		if _, err := parseFilter(bad); err == nil {
			t.Fatalf("parseFilter(%q) succeeded", bad)
		}
	}
}

func TestEncodeDecodeCommands(t *testing.T) {
	hexOut := strings.TrimSpace(run(t, "encode", "peak:1000:-7.5", "crossover:80"))
	if hexOut != "0190f11107380011" {
		t.Fatalf("encode = %q", hexOut)
	}
	out := run(t, "decode", hexOut)
	want := "0: peak f=1000 g=-7.5 q=0.71\n1: crossover f=80 g=0 q=0.71\n"
	if out != want {
		t.Fatalf("decode = %q, want %q", out, want)
	}
}

func TestDecodeRejectsMalformed(t *testing.T) {
	rootCmd.SetArgs([]string{"decode", "0102030405"})
	rootCmd.SetOut(&bytes.Buffer{})
	if err := rootCmd.Execute(); err == nil {
		t.Fatal("decode of 5 bytes succeeded")
	}
}

func TestVersion(t *testing.T) {
	if out := run(t, "version"); !strings.HasPrefix(out, "eqlinkd ") {
		t.Fatalf("version = %q", out)
	}
}
