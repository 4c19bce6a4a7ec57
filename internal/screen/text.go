package screen

import (
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	importedKey = "%d images imported"
	uploadedKey = "%d images sent to server"
	clearedKey  = "%d images removed"
)

var printer = newPrinter()

func newPrinter() *message.Printer {
	tag := language.English
	_ = message.Set(tag, importedKey, plural.Selectf(1, "%d",
		plural.One, "%d image imported",
		plural.Other, "%d images imported"))
	_ = message.Set(tag, uploadedKey, plural.Selectf(1, "%d",
		plural.One, "%d image sent to server",
		plural.Other, "%d images sent to server"))
	_ = message.Set(tag, clearedKey, plural.Selectf(1, "%d",
		plural.One, "%d image removed",
		plural.Other, "%d images removed"))
	return message.NewPrinter(tag)
}

// ImportedText is the imported counter line.
func ImportedText(n int) string { return printer.Sprintf(importedKey, n) }

// UploadedText is the uploaded counter line.
func UploadedText(n int) string { return printer.Sprintf(uploadedKey, n) }

// ClearedText confirms a clear-imports action.
func ClearedText(n int) string { return printer.Sprintf(clearedKey, n) }

// ConnectionText is the network status label.
func ConnectionText(online bool) string {
	if online {
		return "Connected"
	}
	return "Not connected"
}

var barGlyphs = []string{"▂", "▄", "▆", "█"}

// SignalIndicator renders four bars with the first n lit. Unlit bars are
// dimmed by the caller's style.
func SignalIndicator(n int, lit, unlit func(string) string) string {
	if n < 0 {
		n = 0
	}
	if n > len(barGlyphs) {
		n = len(barGlyphs)
	}
	var b strings.Builder
	for i, glyph := range barGlyphs {
		if i < n {
			b.WriteString(lit(glyph))
		} else {
			b.WriteString(unlit(glyph))
		}
	}
	return b.String()
}
