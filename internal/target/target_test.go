package target

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseABIRoundTripsNames(t *testing.T) {
	for _, abi := range All() {
		parsed, err := ParseABI(" " + abi.String() + " ")
		if err != nil {
			t.Fatalf("ParseABI(%q): %v", abi, err)
		}
		if parsed != abi {
			t.Fatalf("ParseABI(%q) = %v", abi, parsed)
		}
	}
	if _, err := ParseABI("mips64"); err == nil {
		t.Fatal("expected error for unknown abi")
	}
}

func TestDefaultsCoverEveryABI(t *testing.T) {
	defaults := Defaults()
	var got []string
	for _, tgt := range defaults {
		got = append(got, tgt.ABI.String())
	}
	if diff := cmp.Diff(Names(), got); diff != "" {
		t.Fatalf("default order mismatch (-want +got):\n%s", diff)
	}
	if defaults[1].String() != "arm64-v8a@21" {
		t.Fatalf("unexpected target label %q", defaults[1])
	}
}

func TestFilterPreservesConfiguredOrder(t *testing.T) {
	filtered, err := Filter(Defaults(), []string{"x86_64", "armeabi-v7a"})
	if err != nil {
		t.Fatalf("Filter: %v", err)
	}
	want := []Target{{ABI: ArmeabiV7a, APILevel: 16}, {ABI: X86_64, APILevel: 21}}
	if diff := cmp.Diff(want, filtered); diff != "" {
		t.Fatalf("filter mismatch (-want +got):\n%s", diff)
	}

	if _, err := Filter(Defaults()[:1], []string{"x86"}); err == nil {
		t.Fatal("expected error when filtering for an unconfigured abi")
	}
}

func TestInvalidABIString(t *testing.T) {
	if ABI(0).Valid() {
		t.Fatal("zero ABI must not be valid")
	}
	if ABI(42).String() != "abi(42)" {
		t.Fatalf("unexpected string for unknown abi: %q", ABI(42).String())
	}
}
