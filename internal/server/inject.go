package server

import (
	"bytes"

	"golang.org/x/net/html"
)

// scriptTag is the element injected into served pages.
const scriptTag = `<script src="` + LiveReloadScript + `"></script>`

// InjectBeforeBodyEnd inserts snippet right before the last </body> end
// tag of page. Tags inside scripts, styles and comments are not matched.
// Pages without </body> get snippet appended.
func InjectBeforeBodyEnd(page []byte, snippet string) []byte {
	if snippet == "" {
		return page
	}

	at := -1
	offset := 0
	z := html.NewTokenizer(bytes.NewReader(page))
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		size := len(z.Raw())
		if tt == html.EndTagToken {
			if name, _ := z.TagName(); string(name) == "body" {
				at = offset
			}
		}
		offset += size
	}
	if at < 0 {
		at = len(page)
	}

	out := make([]byte, 0, len(page)+len(snippet))
	out = append(out, page[:at]...)
	out = append(out, snippet...)
	out = append(out, page[at:]...)
	return out
}
