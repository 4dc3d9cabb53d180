package main

import (
	"strings"
	"testing"
)

const baselineOutput = `goos: linux
goarch: amd64
pkg: github.com/MrEthical07/chatgate
BenchmarkValidateSession-8   	   20000	     50000 ns/op	    4096 B/op	      40 allocs/op
BenchmarkValidateSession-8   	   20000	     52000 ns/op	    4096 B/op	      40 allocs/op
BenchmarkValidateSession-8   	   20000	     51000 ns/op	    4096 B/op	      40 allocs/op
BenchmarkCheckAndConsumeMemory-8	 5000000	       250 ns/op	       0 B/op	       0 allocs/op
PASS
`

var testTracked = map[string][]string{
	"BenchmarkValidateSession":       {"ns/op", "allocs/op"},
	"BenchmarkCheckAndConsumeMemory": {"ns/op", "allocs/op"},
}

func mustParse(t *testing.T, out string) sampleSet {
	t.Helper()
	s, err := parseBenchmarks(strings.NewReader(out), testTracked)
	if err != nil {
		t.Fatalf("parseBenchmarks: %v", err)
	}
	return s
}

func TestParseBenchmarks(t *testing.T) {
	s := mustParse(t, baselineOutput)

	if got := len(s["BenchmarkValidateSession"]["ns/op"]); got != 3 {
		t.Fatalf("ns/op samples = %d, want 3", got)
	}
	if got := median(s["BenchmarkValidateSession"]["ns/op"]); got != 51000 {
		t.Fatalf("median = %v, want 51000", got)
	}
	if got := s["BenchmarkCheckAndConsumeMemory"]["allocs/op"]; len(got) != 1 || got[0] != 0 {
		t.Fatalf("allocs/op = %v", got)
	}
}

func TestCompareWithinThreshold(t *testing.T) {
	base := mustParse(t, baselineOutput)
	cand := mustParse(t, strings.ReplaceAll(baselineOutput, "50000 ns/op", "60000 ns/op"))

	results, failures := compare(base, cand, testTracked, 0.30)
	if len(failures) != 0 {
		t.Fatalf("unexpected failures: %v", failures)
	}
	if len(results) != 4 || results[0].benchmark != "BenchmarkCheckAndConsumeMemory" {
		t.Fatalf("results = %+v", results)
	}
}

func TestCompareFlagsRegression(t *testing.T) {
	base := mustParse(t, baselineOutput)
	cand := mustParse(t, strings.ReplaceAll(baselineOutput, "40 allocs/op", "90 allocs/op"))

	_, failures := compare(base, cand, testTracked, 0.30)
	if len(failures) != 1 || !strings.Contains(failures[0], "allocs/op regressed") {
		t.Fatalf("failures = %v", failures)
	}
}

func TestCompareZeroAllocBaseline(t *testing.T) {
	base := mustParse(t, baselineOutput)
	cand := mustParse(t, strings.ReplaceAll(baselineOutput, "0 B/op	       0 allocs/op", "0 B/op	       1 allocs/op"))

	_, failures := compare(base, cand, testTracked, 0.30)
	if len(failures) != 1 || !strings.Contains(failures[0], "rose from 0") {
		t.Fatalf("failures = %v", failures)
	}
}

func TestCompareMissingSamples(t *testing.T) {
	base := mustParse(t, baselineOutput)
	_, failures := compare(base, sampleSet{}, testTracked, 0.30)
	if len(failures) != 4 {
		t.Fatalf("failures = %v", failures)
	}
}

func TestNormalizeBenchmarkName(t *testing.T) {
	tests := map[string]string{
		"BenchmarkValidateSession-16": "BenchmarkValidateSession",
		"BenchmarkValidateSession":    "BenchmarkValidateSession",
		"BenchmarkLogin-fast":         "BenchmarkLogin-fast",
	}
	for in, want := range tests {
		if got := normalizeBenchmarkName(in); got != want {
			t.Fatalf("normalizeBenchmarkName(%q) = %q, want %q", in, got, want)
		}
	}
}
