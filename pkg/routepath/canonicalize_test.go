package routepath

import (
	"errors"
	"testing"
)

func TestCanonicalize(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantPath     string
		wantQuery    string
		wantFragment string
		wantChanged  bool
		wantErr      error
	}{
		{name: "root", input: "/", wantPath: "/"},
		{name: "empty string", input: "", wantPath: "/", wantChanged: true},
		{name: "no leading slash", input: "auth/signin", wantPath: "/auth/signin", wantChanged: true},
		{name: "collapse slashes", input: "/auth//signin", wantPath: "/auth/signin", wantChanged: true},
		{name: "single dot", input: "/auth/./lock", wantPath: "/auth/lock", wantChanged: true},
		{name: "double dot", input: "/auth/lock/../signin", wantPath: "/auth/signin", wantChanged: true},
		{name: "trailing slash", input: "/backend/", wantPath: "/backend", wantChanged: true},
		{name: "query preserved", input: "/auth/signin?reset=reset", wantPath: "/auth/signin", wantQuery: "reset=reset"},
		{name: "fragment preserved", input: "/backend#top", wantPath: "/backend", wantFragment: "top"},
		{name: "valid escape", input: "/a%20b", wantPath: "/a%20b"},
		{name: "backslash", input: "/auth\\signin", wantErr: ErrBackslashInPath},
		{name: "nul byte", input: "/auth%00", wantErr: ErrNullByteInPath},
		{name: "bad escape", input: "/auth%GG", wantErr: ErrInvalidPercentEscape},
		{name: "truncated escape", input: "/auth%2", wantErr: ErrInvalidPercentEscape},
		{name: "escapes root", input: "/../secret", wantErr: ErrPathEscapesRoot},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Canonicalize(tt.input)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Canonicalize(%q) error = %v, want %v", tt.input, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Canonicalize(%q) unexpected error: %v", tt.input, err)
			}
			if got.Path != tt.wantPath {
				t.Errorf("Path = %q, want %q", got.Path, tt.wantPath)
			}
			if got.Query != tt.wantQuery {
				t.Errorf("Query = %q, want %q", got.Query, tt.wantQuery)
			}
			if got.Fragment != tt.wantFragment {
				t.Errorf("Fragment = %q, want %q", got.Fragment, tt.wantFragment)
			}
			if got.Changed != tt.wantChanged {
				t.Errorf("Changed = %v, want %v", got.Changed, tt.wantChanged)
			}
		})
	}
}

func TestFromHash(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{input: "", want: "/"},
		{input: "/", want: "/"},
		{input: "#", want: "/"},
		{input: "#/auth/signin", want: "/auth/signin"},
		{input: "/#/backend/dashboard", want: "/backend/dashboard"},
		{input: "#/auth/signin?reset=reset", want: "/auth/signin?reset=reset"},
		{input: "#//evil.example", wantErr: true},
		{input: "#https://evil.example", wantErr: true},
		{input: "/backend", wantErr: true},
	}

	for _, tt := range tests {
		got, err := FromHash(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("FromHash(%q) = %q, want error", tt.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("FromHash(%q) unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FromHash(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToHash(t *testing.T) {
	if got := ToHash("/backend/dashboard"); got != "#/backend/dashboard" {
		t.Errorf("ToHash() = %q", got)
	}
	if got := ToHash(""); got != "#/" {
		t.Errorf("ToHash(\"\") = %q", got)
	}
}

func TestSegments(t *testing.T) {
	if got := Segments("/"); len(got) != 0 {
		t.Errorf("Segments(/) = %v, want empty", got)
	}
	got := Segments("/auth/two-factor")
	if len(got) != 2 || got[0] != "auth" || got[1] != "two-factor" {
		t.Errorf("Segments() = %v", got)
	}
}

func TestDecodeSegment(t *testing.T) {
	if got, err := DecodeSegment("a%20b", false); err != nil || got != "a b" {
		t.Errorf("DecodeSegment() = %q, %v", got, err)
	}
	if _, err := DecodeSegment("a%2Fb", false); !errors.Is(err, ErrEncodedSlashInSegment) {
		t.Errorf("expected ErrEncodedSlashInSegment, got %v", err)
	}
	if got, err := DecodeSegment("a%2Fb", true); err != nil || got != "a/b" {
		t.Errorf("catch-all DecodeSegment() = %q, %v", got, err)
	}
}
