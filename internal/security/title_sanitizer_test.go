package security

import "testing"

func TestTitleSanitizer_ImplementsInterface(t *testing.T) {
	var _ TitleSanitizerService = (*titleSanitizer)(nil)
}

// HTML実体参照がデコードされることを検証
func TestClean_DecodesHTMLEntities(t *testing.T) {
	s := NewTitleSanitizer()

	tests := []struct {
		in   string
		want string
	}{
		{"Meetup &#38; LT Night", "Meetup & LT Night"},
		{"Go &amp; Rust", "Go & Rust"},
		{"&lt;generics&gt;入門", "<generics>入門"},
		{"&quot;quoted&quot;", `"quoted"`},
	}

	for _, tt := range tests {
		if got := s.Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// HTMLタグが除去されテキストのみ残ることを検証
func TestClean_StripsHTMLTags(t *testing.T) {
	s := NewTitleSanitizer()

	tests := []struct {
		in   string
		want string
	}{
		{"<b>太字のタイトル</b>", "太字のタイトル"},
		{"<script>alert(1)</script>安全なタイトル", "安全なタイトル"},
		{"リンク<a href=\"https://example.com\">付き</a>", "リンク付き"},
	}

	for _, tt := range tests {
		if got := s.Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestClean_TrimsWhitespace(t *testing.T) {
	s := NewTitleSanitizer()

	if got := s.Clean("  前後に空白  "); got != "前後に空白" {
		t.Errorf("Clean = %q, want %q", got, "前後に空白")
	}
}

func TestClean_EmptyInput(t *testing.T) {
	s := NewTitleSanitizer()

	if got := s.Clean(""); got != "" {
		t.Errorf("Clean(\"\") = %q, want \"\"", got)
	}
}

// 同一入力に対して同一出力を返すこと（冪等性）を検証
func TestClean_Idempotent(t *testing.T) {
	s := NewTitleSanitizer()

	in := "<em>Advent Calendar &#38; 勉強会</em>"
	first := s.Clean(in)
	second := s.Clean(first)

	if first != "Advent Calendar & 勉強会" {
		t.Errorf("first = %q, want %q", first, "Advent Calendar & 勉強会")
	}
	if second != first {
		t.Errorf("Clean is not idempotent: %q != %q", second, first)
	}
}
