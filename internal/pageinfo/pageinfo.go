// Package pageinfo pulls article metadata out of an HTML snapshot of the
// publishing console editor or a published article page.
package pageinfo

import (
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

type Info struct {
	URL         string `json:"url,omitempty"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	AccountName string `json:"accountName"`
	Digest      string `json:"digest"`
	CoverURL    string `json:"coverUrl"`
	WordCount   int    `json:"wordCount"`
	ImageCount  int    `json:"imageCount"`
}

// Extract parses html and returns what it can find. Missing fields are left
// empty; only a malformed reader yields an error.
func Extract(html string, pageURL string) (Info, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Info{}, err
	}
	doc.Find("script, style, noscript").Remove()

	info := Info{
		URL: pageURL,
		Title: firstNonEmpty(
			text(doc, "#activity-name"),
			inputValue(doc, "#title"),
			meta(doc, `meta[property="og:title"]`),
			text(doc, "title"),
		),
		Author: firstNonEmpty(
			text(doc, "#js_author_name"),
			inputValue(doc, "#author"),
			meta(doc, `meta[name="author"]`),
		),
		AccountName: firstNonEmpty(
			text(doc, "#js_name"),
			text(doc, ".weui-desktop-account__nickname"),
			meta(doc, `meta[property="og:site_name"]`),
		),
		Digest: firstNonEmpty(
			textareaValue(doc, "#js_description"),
			meta(doc, `meta[name="description"]`),
			meta(doc, `meta[property="og:description"]`),
		),
		CoverURL: firstNonEmpty(
			meta(doc, `meta[property="og:image"]`),
			attr(doc, ".js_cover_preview img", "src"),
		),
	}

	content := doc.Find("#js_content")
	if content.Length() == 0 {
		content = doc.Find(".ProseMirror, #ueditor_0, .rich_media_content")
	}
	if content.Length() == 0 {
		content = doc.Find("body")
	}
	info.WordCount = countWords(content.Text())
	info.ImageCount = content.Find("img").Length()
	return info, nil
}

func text(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().Text())
}

func meta(doc *goquery.Document, selector string) string {
	return attr(doc, selector, "content")
}

func attr(doc *goquery.Document, selector string, name string) string {
	value, _ := doc.Find(selector).First().Attr(name)
	return strings.TrimSpace(value)
}

func inputValue(doc *goquery.Document, selector string) string {
	return attr(doc, selector, "value")
}

func textareaValue(doc *goquery.Document, selector string) string {
	return text(doc, selector)
}

// countWords counts each Han character as a word and each run of other
// letters or digits as one word, the way editors count mixed CJK text.
func countWords(s string) int {
	count := 0
	inWord := false
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Han, r):
			count++
			inWord = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if !inWord {
				count++
				inWord = true
			}
		default:
			inWord = false
		}
	}
	return count
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
