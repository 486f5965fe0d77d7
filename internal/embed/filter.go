package embed

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// VideoTag is the placeholder element the rich-text editor inserts for a video.
const VideoTag = "viostream-video"

// DefaultVideoTitle is used when the placeholder carries no title.
const DefaultVideoTitle = "Viostream Video"

// Placeholder attributes written by the editor.
const (
	attrVideoKey    = "data-video-key"
	attrVideoTitle  = "data-video-title"
	attrVideoWidth  = "data-video-width"
	attrVideoHeight = "data-video-height"
)

const (
	wrapperClass = "viostream-embed-wrapper"
	wrapperStyle = "position:relative;padding-bottom:%s;height:0;overflow:hidden;max-width:100%%;"
	iframeStyle  = "position:absolute;top:0;left:0;width:100%;height:100%;border:0;"
	iframeAllow  = "autoplay; fullscreen; picture-in-picture"
)

// FilterResult is the outcome of FilterText.
type FilterResult struct {
	Text string
	// Embedded counts the placeholders replaced by players.
	Embedded int
}

// FilterText replaces every <viostream-video> placeholder in an HTML fragment with a
// responsive player iframe. Text without placeholders is returned untouched;
// placeholders without a usable key are left in place.
func FilterText(text string) (FilterResult, error) {
	if !strings.Contains(text, "<"+VideoTag) {
		return FilterResult{Text: text}, nil
	}

	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(text), body)
	if err != nil {
		return FilterResult{}, fmt.Errorf("parse html fragment: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}

	var placeholders []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == VideoTag {
			placeholders = append(placeholders, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(body)

	embedded := 0
	for _, el := range placeholders {
		player := playerFor(el)
		if player == nil {
			continue
		}
		parent := el.Parent
		parent.InsertBefore(player, el)
		// A non-void custom element swallows whatever follows an unclosed tag; keep that content.
		for c := el.FirstChild; c != nil; c = el.FirstChild {
			el.RemoveChild(c)
			parent.InsertBefore(c, el)
		}
		parent.RemoveChild(el)
		embedded++
	}
	if embedded == 0 {
		return FilterResult{Text: text}, nil
	}

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return FilterResult{}, fmt.Errorf("render html fragment: %w", err)
		}
	}
	return FilterResult{Text: buf.String(), Embedded: embedded}, nil
}

// FilterTips describes the placeholder syntax for editors.
func FilterTips(long bool) string {
	if long {
		return "You can embed Viostream videos using the Viostream button in the editor toolbar. " +
			"Videos are inserted as <viostream-video> elements and automatically converted to embedded video players on display."
	}
	return "Viostream videos can be embedded using the editor toolbar button."
}

func playerFor(el *html.Node) *html.Node {
	key := strings.TrimSpace(attr(el, attrVideoKey))
	if key == "" {
		return nil
	}
	src := BuildURL(key, PlayerOptions{})
	if src == "" {
		return nil
	}
	title := attr(el, attrVideoTitle)
	if isBlank(title) {
		title = DefaultVideoTitle
	}
	padding := PaddingBottom(attr(el, attrVideoWidth), attr(el, attrVideoHeight))

	wrapper := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr: []html.Attribute{
			{Key: "class", Val: wrapperClass},
			{Key: "style", Val: fmt.Sprintf(wrapperStyle, padding)},
		},
	}
	wrapper.AppendChild(&html.Node{
		Type:     html.ElementNode,
		Data:     "iframe",
		DataAtom: atom.Iframe,
		Attr: []html.Attribute{
			{Key: "src", Val: src},
			{Key: "title", Val: title},
			{Key: "width", Val: "100%"},
			{Key: "height", Val: "100%"},
			{Key: "style", Val: iframeStyle},
			{Key: "frameborder", Val: "0"},
			{Key: "allowfullscreen", Val: "true"},
			{Key: "allow", Val: iframeAllow},
		},
	})
	return wrapper
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}
