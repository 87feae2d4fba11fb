package output

import (
	"bytes"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Injection is what the assembler adds to each page.
type Injection struct {
	// Stylesheet is linked at the end of <head>.
	Stylesheet string
	// Scripts are appended to <body> as blocking classic scripts, in order.
	Scripts []string
	// Sprite is inserted as the first child of <body>.
	Sprite string
	// Inline is a script body appended after Scripts.
	Inline string
}

// Empty reports whether there is nothing to inject.
func (inj Injection) Empty() bool {
	return inj.Stylesheet == "" && len(inj.Scripts) == 0 && inj.Sprite == "" && inj.Inline == ""
}

// Inject edits a rendered page. Documents without <head> or <body> get the
// elements the HTML parser synthesizes for them.
func Inject(page []byte, inj Injection) ([]byte, error) {
	if inj.Empty() {
		return page, nil
	}

	doc, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, err
	}

	head := findElement(doc, atom.Head)
	body := findElement(doc, atom.Body)

	if inj.Stylesheet != "" && head != nil {
		head.AppendChild(element(atom.Link, map[string]string{
			"rel":  "stylesheet",
			"href": inj.Stylesheet,
		}))
	}

	if body != nil {
		if inj.Sprite != "" {
			nodes, err := html.ParseFragment(strings.NewReader(inj.Sprite), body)
			if err != nil {
				return nil, err
			}
			first := body.FirstChild
			for _, n := range nodes {
				body.InsertBefore(n, first)
			}
		}

		for _, src := range inj.Scripts {
			body.AppendChild(element(atom.Script, map[string]string{"src": src}))
		}

		if inj.Inline != "" {
			s := element(atom.Script, nil)
			s.AppendChild(&html.Node{Type: html.TextNode, Data: inj.Inline})
			body.AppendChild(s)
		}
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func element(a atom.Atom, attrs map[string]string) *html.Node {
	n := &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String()}
	// Fixed order keeps output byte-stable.
	for _, key := range []string{"rel", "href", "src"} {
		if v, ok := attrs[key]; ok {
			n.Attr = append(n.Attr, html.Attribute{Key: key, Val: v})
		}
	}
	return n
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
