package output

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// Status renders an API status for humans: "on_hold" becomes "On Hold".
func Status(s string) string {
	if s == "" {
		return ""
	}
	return titleCaser.String(strings.NewReplacer("_", " ", "-", " ").Replace(s))
}

// Time formats a timestamp in UTC, or "" for the zero time.
func Time(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}

// TimePtr is Time for optional timestamps.
func TimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return Time(*t)
}

// Ago formats a time relative to now, like "5m ago".
func Ago(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return ago(time.Since(t))
}

func ago(diff time.Duration) string {
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	case diff < 365*24*time.Hour:
		return fmt.Sprintf("%dmo ago", int(diff.Hours()/24/30))
	}
	return fmt.Sprintf("%dy ago", int(diff.Hours()/24/365))
}

// Fingerprint returns the SHA256 fingerprint of an authorized_keys style
// public key, or "" when it does not parse.
func Fingerprint(publicKey string) string {
	key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey))
	if err != nil {
		return ""
	}
	return ssh.FingerprintSHA256(key)
}
