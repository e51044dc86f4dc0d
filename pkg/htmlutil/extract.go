// Package htmlutil provides HTML processing utilities for rendered profile pages.
package htmlutil

import (
	"html"
	"regexp"
	"strings"
)

// StripTags removes HTML tags, scripts and styles and returns plain text.
func StripTags(htmlContent string) string {
	if htmlContent == "" {
		return ""
	}
	content := scriptStylePattern.ReplaceAllString(htmlContent, " ")
	content = tagPattern.ReplaceAllString(content, " ")
	content = html.UnescapeString(content)
	content = multiSpacePattern.ReplaceAllString(content, " ")
	return strings.TrimSpace(content)
}

// Title extracts the title from HTML content.
func Title(htmlContent string) string {
	if matches := titlePattern.FindStringSubmatch(htmlContent); len(matches) > 1 {
		return strings.TrimSpace(html.UnescapeString(matches[1]))
	}
	if matches := ogTitlePattern.FindStringSubmatch(htmlContent); len(matches) > 1 {
		return strings.TrimSpace(html.UnescapeString(matches[1]))
	}
	return ""
}

var (
	tagPattern         = regexp.MustCompile(`<[^>]+>`)
	scriptStylePattern = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(?:script|style|noscript)>`)
	multiSpacePattern  = regexp.MustCompile(`[\s\x{00A0}]+`)
	titlePattern       = regexp.MustCompile(`(?i)<title[^>]*>([^<]+)</title>`)
	ogTitlePattern     = regexp.MustCompile(`(?i)<meta[^>]+property=["']og:title["'][^>]+content=["']([^"']+)["']`)
)

// IsNotFound detects common "profile not found" pages in either locale.
func IsNotFound(text string) bool {
	lower := strings.ToLower(text)
	patterns := []string{
		"404 not found",
		"page not found",
		"error 404",
		"user not found",
		"profile not found",
		"this page doesn't exist",
		"we couldn't find",
		"página no encontrada",
		"no pudimos encontrar",
		"usuario no encontrado",
	}
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// IsLoginWall reports whether a rendered page is asking for credentials instead of showing content.
func IsLoginWall(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range []string{"log in to continue", "inicia sesión para continuar", "sign in to view"} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
