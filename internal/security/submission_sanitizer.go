// Package security はアプリケーションのセキュリティ機能を提供する。
//
// SubmissionSanitizer は公開フォームから受け取ったテキストを、
// HTMLメールに埋め込んでも安全な形に変換する。
// bluemondayのポリシーで全タグを除去し、特殊文字をエスケープする。
package security

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// SubmissionSanitizer はフォーム入力のサニタイズを行う。
// ポリシーはスレッドセーフで、複数のリクエストから共有できる。
type SubmissionSanitizer struct {
	strict *bluemonday.Policy
	body   *bluemonday.Policy
}

// NewSubmissionSanitizer はSubmissionSanitizerを生成する。
// ポリシーの内容:
//   - Text: 全タグを除去し、特殊文字をエスケープする
//   - Paragraphs: Textの結果を段落（p）と改行（br）のみで組み立てる
func NewSubmissionSanitizer() *SubmissionSanitizer {
	body := bluemonday.NewPolicy()
	body.AllowElements("p", "br")

	return &SubmissionSanitizer{
		strict: bluemonday.StrictPolicy(),
		body:   body,
	}
}

// Text は1行のテキスト（氏名・メールアドレス等）をサニタイズする。
// 改行はスペースに置き換える。
func (s *SubmissionSanitizer) Text(raw string) string {
	raw = strings.Join(strings.Fields(raw), " ")
	return s.strict.Sanitize(raw)
}

// Paragraphs は複数行の本文をHTMLの段落に変換する。
// 空行で段落を分け、段落内の改行は<br>にする。
func (s *SubmissionSanitizer) Paragraphs(raw string) string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")

	var b strings.Builder
	for _, para := range strings.Split(raw, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i, line := range lines {
			lines[i] = s.strict.Sanitize(strings.TrimSpace(line))
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}

	return s.body.Sanitize(b.String())
}
