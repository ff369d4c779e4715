package probe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Ref is one URL reference found on a page. Host is the resolved hostname,
// empty when the reference is a fragment or an unparseable value.
type Ref struct {
	Raw  string
	Host string
}

// PageInfo holds everything the content-structure rules need from a single
// parse of the fetched HTML.
type PageInfo struct {
	FaviconHost string // resolved host of the first icon link
	HasFavicon  bool

	Resources   []Ref    // every src/href attribute on the page
	Anchors     []Ref    // <a href> targets
	TagRefs     []Ref    // <meta>/<script>/<link> src and href targets
	FormActions []string // <form action> values, including empty ones

	HasMailto           bool
	HasOnMouseover      bool
	HasRightClickScript bool
	HasPopupScript      bool
	HasIframe           bool
}

// PageProber fetches a URL and scans the body once for the structural
// signals the extractor consumes.
type PageProber struct {
	fetcher Fetcher
}

// NewPageProber builds a prober on top of the given Fetcher.
func NewPageProber(fetcher Fetcher) *PageProber {
	return &PageProber{fetcher: fetcher}
}

// Lookup fetches pageURL and parses the body. Any answered request yields
// the status code; Page is only set for a 200 response whose body scanned
// cleanly, matching the content rules' requirements.
func (p *PageProber) Lookup(ctx context.Context, pageURL string) PageResult {
	base, err := url.Parse(pageURL)
	if err != nil {
		return PageResult{Status: StatusParseError}
	}

	body, statusCode, err := p.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return PageResult{Status: classify(ctx, err)}
	}
	defer func() { _ = body.Close() }()

	if statusCode != 200 {
		return PageResult{Status: StatusOK, StatusCode: statusCode}
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		return PageResult{Status: classify(ctx, err), StatusCode: statusCode}
	}

	page, err := scanPage(raw, base)
	if err != nil {
		return PageResult{Status: StatusParseError, StatusCode: statusCode}
	}

	return PageResult{Status: StatusOK, StatusCode: statusCode, Page: page}
}

var (
	rightClickRe = regexp.MustCompile(`event\.button\s*==\s*2`)
	popupRe      = regexp.MustCompile(`window\.open\s*\(`)
)

// scanPage performs a single-pass traversal of the HTML body, collecting
// link references, form actions, and the script tricks phishing kits use.
func scanPage(raw []byte, base *url.URL) (*PageInfo, error) {
	info := &PageInfo{}

	z := html.NewTokenizer(bytes.NewReader(raw))
	var inScript bool

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return info, nil
			}
			return nil, z.Err()

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := z.TagName()
			tag := string(tn)
			if tag == "script" && tt == html.StartTagToken {
				inScript = true
			}
			if tag == "iframe" {
				info.HasIframe = true
			}
			if !hasAttr {
				continue
			}
			attrs := collectAttrs(z)
			scanTag(info, tag, attrs, base)

		case html.TextToken:
			if inScript {
				scanScript(info, z.Text())
			}

		case html.EndTagToken:
			tn, _ := z.TagName()
			if string(tn) == "script" {
				inScript = false
			}
		}
	}
}

func scanTag(info *PageInfo, tag string, attrs map[string]string, base *url.URL) {
	for key, val := range attrs {
		lower := strings.ToLower(val)
		if strings.Contains(lower, "mailto:") {
			info.HasMailto = true
		}
		if key == "onmouseover" {
			info.HasOnMouseover = true
		}
		if strings.HasPrefix(key, "on") {
			scanScript(info, []byte(val))
		}
	}

	if ref, ok := attrRef(attrs, base, "src", "href"); ok {
		info.Resources = append(info.Resources, ref)
	}

	switch tag {
	case "a":
		if ref, ok := attrRef(attrs, base, "href"); ok {
			info.Anchors = append(info.Anchors, ref)
		}
	case "meta", "script", "link":
		if ref, ok := attrRef(attrs, base, "src", "href"); ok {
			info.TagRefs = append(info.TagRefs, ref)
		}
		if tag == "link" && isIconRel(attrs["rel"]) && !info.HasFavicon {
			if ref, ok := attrRef(attrs, base, "href"); ok {
				info.HasFavicon = true
				info.FaviconHost = ref.Host
			}
		}
	case "form":
		// Only forms that declare an action are recorded; an explicit
		// empty action is what the form handler rule flags.
		if action, ok := attrs["action"]; ok {
			info.FormActions = append(info.FormActions, action)
		}
	}
}

func scanScript(info *PageInfo, text []byte) {
	if rightClickRe.Match(text) {
		info.HasRightClickScript = true
	}
	if popupRe.Match(text) {
		info.HasPopupScript = true
	}
	if bytes.Contains(bytes.ToLower(text), []byte("mailto:")) {
		info.HasMailto = true
	}
}

// attrRef returns the first non-empty reference among the given attribute
// keys, resolved against the page URL.
func attrRef(attrs map[string]string, base *url.URL, keys ...string) (Ref, bool) {
	for _, key := range keys {
		raw, ok := attrs[key]
		if !ok || raw == "" {
			continue
		}
		ref := Ref{Raw: raw}
		if parsed, err := url.Parse(strings.TrimSpace(raw)); err == nil {
			ref.Host = base.ResolveReference(parsed).Hostname()
		}
		return ref, true
	}
	return Ref{}, false
}

func isIconRel(rel string) bool {
	rel = strings.ToLower(rel)
	return rel == "icon" || rel == "shortcut icon" || strings.Contains(rel, "icon")
}

func collectAttrs(z *html.Tokenizer) map[string]string {
	attrs := make(map[string]string, 4)
	for {
		key, val, more := z.TagAttr()
		attrs[strings.ToLower(string(key))] = string(val)
		if !more {
			return attrs
		}
	}
}
