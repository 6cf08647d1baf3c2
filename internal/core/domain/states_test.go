package domain

import "testing"

func TestNormalizeStateAliases(t *testing.T) {
	cases := map[string]string{
		"KDH": "KED",
		"kdh": "KED",
		"KEL": "KTN",
		"SRK": "SWK",
		"SAB": "SBH",
		"WLH": "KUL",
		"WLP": "LBN",
		"SEL": "SEL",
		"sel": "SEL",
		"ZZZ": "ZZZ",
		"":    "",

		"Selangor":        "SEL",
		"pulau pinang":    "PNG",
		"NEGERI SEMBILAN": "NSN",
	}
	for raw, want := range cases {
		if got := NormalizeState(raw); got != want {
			t.Errorf("NormalizeState(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeStateAliasEqualsCanonical(t *testing.T) {
	for alias, canon := range stateCodeAliases {
		if NormalizeState(alias) != NormalizeState(canon) {
			t.Errorf("alias %s does not normalize to canonical %s", alias, canon)
		}
	}
}

func TestStateSynonyms(t *testing.T) {
	syn := StateSynonyms("KED")
	if len(syn) != 2 || syn[0] != "KED" || syn[1] != "KDH" {
		t.Fatalf("StateSynonyms(KED) = %v", syn)
	}
	// Aliases expand through their canonical form.
	syn = StateSynonyms("kdh")
	if len(syn) != 2 || syn[0] != "KED" {
		t.Fatalf("StateSynonyms(kdh) = %v", syn)
	}
	if syn := StateSynonyms("SEL"); len(syn) != 1 || syn[0] != "SEL" {
		t.Fatalf("StateSynonyms(SEL) = %v", syn)
	}
	if syn := StateSynonyms(""); syn != nil {
		t.Fatalf("StateSynonyms(\"\") = %v, want nil", syn)
	}
}

func TestFormatState(t *testing.T) {
	cases := map[string]string{
		"SEL": "Selangor (SEL)",
		"kdh": "Kedah (KED)",
		"ZZZ": "ZZZ",
		"":    "Unknown",
	}
	for code, want := range cases {
		if got := FormatState(code); got != want {
			t.Errorf("FormatState(%q) = %q, want %q", code, got, want)
		}
	}
}

func TestRecordedDateOf(t *testing.T) {
	if got := RecordedDateOf("2026-02-10T08:00:00Z"); got != "2026-02-10" {
		t.Fatalf("RecordedDateOf = %q", got)
	}
	if got := RecordedDateOf("short"); got != "short" {
		t.Fatalf("RecordedDateOf(short) = %q", got)
	}
	if got := RecordedDateOf(""); got != "" {
		t.Fatalf("RecordedDateOf(empty) = %q", got)
	}
}
