package assets

import (
	"bytes"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/conneroisu/sitepack/internal/errors"
)

const spriteOpen = `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" ` +
	`style="position:absolute;width:0;height:0;overflow:hidden" aria-hidden="true">`

// Symbol is one icon inside the sprite.
type Symbol struct {
	ID     string
	Source string
	markup string
}

// Sprite is the inline SVG sprite injected at the top of every page.
type Sprite struct {
	Symbols []Symbol
}

// BuildSprite collects every .svg under dir into a sprite, one
// <symbol id="<prefix><name>"> per file. A missing directory yields an
// empty sprite. Symbols are ordered by id so the markup is stable.
func BuildSprite(dir, prefix string) (*Sprite, error) {
	sprite := &Sprite{}
	if dir == "" {
		return sprite, nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return sprite, nil
	}

	seen := make(map[string]string)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".svg") {
			return nil
		}

		id := SymbolID(prefix, path)
		if prev, ok := seen[id]; ok {
			return errors.NewValidationError(errors.ErrCodeIconCollision,
				fmt.Sprintf("icons %s and %s both produce symbol %s", prev, path, id)).
				WithLocation(path, 0, 0)
		}
		seen[id] = path

		content, err := os.ReadFile(path)
		if err != nil {
			return errors.WrapIO(err, path, "failed to read icon")
		}

		markup, err := symbolize(id, content)
		if err != nil {
			return errors.NewCompileError(path, 0, 0, "invalid SVG icon", err)
		}

		sprite.Symbols = append(sprite.Symbols, Symbol{ID: id, Source: path, markup: markup})
		return nil
	})
	if err != nil {
		if _, ok := err.(*errors.BuildError); ok {
			return nil, err
		}
		return nil, errors.WrapIO(err, dir, "failed to scan icons")
	}

	sort.Slice(sprite.Symbols, func(i, j int) bool {
		return sprite.Symbols[i].ID < sprite.Symbols[j].ID
	})
	return sprite, nil
}

// Empty reports whether the sprite has no symbols.
func (s *Sprite) Empty() bool {
	return s == nil || len(s.Symbols) == 0
}

// Has reports whether a symbol with id exists.
func (s *Sprite) Has(id string) bool {
	if s == nil {
		return false
	}
	for _, sym := range s.Symbols {
		if sym.ID == id {
			return true
		}
	}
	return false
}

// HTML renders the sprite. An empty sprite renders as "".
func (s *Sprite) HTML() string {
	if s.Empty() {
		return ""
	}
	var b strings.Builder
	b.WriteString(spriteOpen)
	for _, sym := range s.Symbols {
		b.WriteString(sym.markup)
	}
	b.WriteString("</svg>")
	return b.String()
}

// dropped from the root <svg> when it becomes a <symbol>
var spriteDropAttrs = map[string]bool{
	"id": true, "width": true, "height": true, "x": true, "y": true,
	"xmlns": true, "version": true, "class": true, "style": true,
}

func symbolize(id string, content []byte) (string, error) {
	nodes, err := html.ParseFragment(bytes.NewReader(content), &html.Node{
		Type:     html.ElementNode,
		Data:     "body",
		DataAtom: atom.Body,
	})
	if err != nil {
		return "", err
	}

	var root *html.Node
	for _, n := range nodes {
		if root = findSVG(n); root != nil {
			break
		}
	}
	if root == nil {
		return "", fmt.Errorf("no <svg> element found")
	}

	symbol := &html.Node{
		Type:      html.ElementNode,
		Data:      "symbol",
		Namespace: "svg",
		Attr:      []html.Attribute{{Key: "id", Val: id}},
	}
	for _, a := range root.Attr {
		if a.Namespace == "" && spriteDropAttrs[a.Key] {
			continue
		}
		if a.Namespace == "xmlns" || strings.HasPrefix(a.Key, "xmlns:") {
			continue
		}
		symbol.Attr = append(symbol.Attr, a)
	}

	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		root.RemoveChild(c)
		if c.Type != html.CommentNode {
			symbol.AppendChild(c)
		}
		c = next
	}

	var buf bytes.Buffer
	if err := html.Render(&buf, symbol); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func findSVG(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "svg" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findSVG(c); found != nil {
			return found
		}
	}
	return nil
}
