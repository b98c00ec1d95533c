package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TitleSanitizerService は記事タイトルの正規化機能のインターフェースを定義する。
// キーワードフィルタの照合前とSlackメッセージの整形前に使用される。
type TitleSanitizerService interface {
	// Clean はタイトルからHTMLタグを除去し、HTML実体参照をデコードして返す。
	// フィードによってはタイトルに<b>等のマークアップや&#38;のような実体参照が
	// 含まれるため、照合・表示の前に素のテキストへ正規化する。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Clean(rawTitle string) string
}

// titleSanitizer はTitleSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフに正規化処理を行う。
type titleSanitizer struct {
	policy *bluemonday.Policy
}

// NewTitleSanitizer はTitleSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyは全てのタグを除去し、テキストのみを残す。
func NewTitleSanitizer() *titleSanitizer {
	return &titleSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Clean はタイトルからHTMLタグを除去し、HTML実体参照をデコードして返す。
// bluemondayの出力はテキストを実体参照としてエスケープするため、
// タグ除去の後にhtml.UnescapeStringでデコードする順序が重要。
func (s *titleSanitizer) Clean(rawTitle string) string {
	if rawTitle == "" {
		return ""
	}

	stripped := s.policy.Sanitize(rawTitle)
	decoded := html.UnescapeString(stripped)
	return strings.TrimSpace(decoded)
}
