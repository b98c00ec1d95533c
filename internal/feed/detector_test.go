package feed

import "testing"

func TestLooksLikeHTML(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{"doctype", `<!DOCTYPE html><html><head></head></html>`, true},
		{"html tag", `<html lang="ja"><body></body></html>`, true},
		{"rss", `<?xml version="1.0"?><rss version="2.0"></rss>`, false},
		{"atom", `<?xml version="1.0"?><feed xmlns="http://www.w3.org/2005/Atom"></feed>`, false},
		{"plain text", "ただのテキスト", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := looksLikeHTML([]byte(tt.body)); got != tt.want {
				t.Errorf("looksLikeHTML = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiscoverFeedURL(t *testing.T) {
	tests := []struct {
		name string
		html string
		base string
		want string
	}{
		{
			name: "絶対URLのRSSリンク",
			html: `<html><head><link rel="alternate" type="application/rss+xml" href="https://example.com/rss"></head></html>`,
			base: "https://example.com",
			want: "https://example.com/rss",
		},
		{
			name: "相対URLの解決",
			html: `<html><head><link rel="alternate" type="application/atom+xml" href="/feed.atom"></head></html>`,
			base: "https://blog.example.com/entry",
			want: "https://blog.example.com/feed.atom",
		},
		{
			name: "複数リンクは最初のものを採用",
			html: `<html><head>
<link rel="alternate" type="application/rss+xml" href="/rss1">
<link rel="alternate" type="application/rss+xml" href="/rss2">
</head></html>`,
			base: "https://example.com",
			want: "https://example.com/rss1",
		},
		{
			name: "フィードリンクなし",
			html: `<html><head><link rel="stylesheet" href="/style.css"></head></html>`,
			base: "https://example.com",
			want: "",
		},
		{
			name: "type属性が対象外",
			html: `<html><head><link rel="alternate" type="application/json" href="/feed.json"></head></html>`,
			base: "https://example.com",
			want: "",
		},
		{
			name: "body内のリンクは無視",
			html: `<html><head></head><body><link rel="alternate" type="application/rss+xml" href="/rss"></body></html>`,
			base: "https://example.com",
			want: "",
		},
		{
			name: "属性値の大文字小文字を無視",
			html: `<html><head><link REL="Alternate" TYPE="application/RSS+xml" href="/rss"></head></html>`,
			base: "https://example.com",
			want: "https://example.com/rss",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := discoverFeedURL([]byte(tt.html), tt.base); got != tt.want {
				t.Errorf("discoverFeedURL = %q, want %q", got, tt.want)
			}
		})
	}
}
