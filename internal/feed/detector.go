package feed

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// feedLinkTypes はフィード自動検出で対象とするlink要素のtype属性値。
var feedLinkTypes = map[string]bool{
	"application/rss+xml":  true,
	"application/atom+xml": true,
}

// looksLikeHTML はボディの先頭部分を検査してHTML文書らしいかを判定する。
// フィードURLとしてブログのトップページが登録されているケースを検出するために使う。
func looksLikeHTML(body []byte) bool {
	checkSize := 1024
	if len(body) < checkSize {
		checkSize = len(body)
	}
	prefix := strings.ToLower(string(body[:checkSize]))

	return strings.Contains(prefix, "<!doctype html") || strings.Contains(prefix, "<html")
}

// discoverFeedURL はHTMLのheadタグから最初のRSS/Atomフィードリンクを検出する。
// <link rel="alternate" type="application/rss+xml|application/atom+xml" href="...">
// を探し、相対URLはbaseURLを基準に絶対URLへ解決する。
// 見つからない場合は空文字列を返す。
func discoverFeedURL(htmlBody []byte, baseURL string) string {
	baseU, err := url.Parse(baseURL)
	if err != nil {
		return ""
	}

	tokenizer := html.NewTokenizer(bytes.NewReader(htmlBody))

	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return ""

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := tokenizer.TagName()
			tagName := string(tn)

			// bodyに入ったらheadの解析を終了
			if tagName == "body" {
				return ""
			}

			if tagName != "link" || !hasAttr {
				continue
			}

			var rel, linkType, href string
			for {
				key, val, more := tokenizer.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					linkType = strings.ToLower(string(val))
				case "href":
					href = string(val)
				}
				if !more {
					break
				}
			}

			if rel != "alternate" || href == "" || !feedLinkTypes[linkType] {
				continue
			}

			if resolved := resolveURL(baseU, href); resolved != "" {
				return resolved
			}
		}
	}
}

// resolveURL は相対URLをbaseを基準に絶対URLへ解決する。
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
