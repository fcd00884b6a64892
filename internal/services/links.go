package services

import (
	"net/url"
	"strings"
)

// LinkBuilder renders the personalised form and dashboard links and the
// message that carries them. The same message is used on first contact and
// by the daily scheduler.
type LinkBuilder struct {
	FormBaseURL string // prefilled form URL; empty disables the form link
	FormEntryID string // form field that receives the token
	AppBaseURL  string // dashboard base URL
}

// FormURL returns the prefilled form link for token, or "" when the form is
// not configured.
func (b LinkBuilder) FormURL(token string) string {
	base := strings.TrimSpace(b.FormBaseURL)
	entry := strings.TrimSpace(b.FormEntryID)
	if base == "" || entry == "" {
		return ""
	}
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + url.QueryEscape(entry) + "=" + url.QueryEscape(token)
}

// DashboardURL returns the per-user dashboard link for token.
func (b LinkBuilder) DashboardURL(token string) string {
	return strings.TrimRight(b.AppBaseURL, "/") + "/user/" + url.PathEscape(token)
}

// Message renders the link message for a user.
func (b LinkBuilder) Message(displayName, token string) string {
	name := cleanName(displayName)
	if name == "" {
		name = "こんにちは"
	}
	dash := b.DashboardURL(token)

	var sb strings.Builder
	sb.WriteString(name)
	if form := b.FormURL(token); form != "" {
		sb.WriteString(" さん、以下のURLをご利用ください👇\n\n")
		sb.WriteString("📋 日次フォーム\n")
		sb.WriteString(form)
		sb.WriteString("\n\n📊 あなたのダッシュボード\n")
		sb.WriteString(dash)
		sb.WriteString("\n\n※ フォームの『ユーザーID』欄は自動入力されます。変更せずに送信してください。")
		return sb.String()
	}
	sb.WriteString(" さん、あなたのダッシュボードはこちらです👇\n")
	sb.WriteString(dash)
	sb.WriteString("\n\n（フォームURLは未設定のため送れませんでした。管理者に連絡してください）")
	return sb.String()
}
