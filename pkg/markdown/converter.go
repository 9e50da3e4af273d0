package markdown

import (
	"bytes"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/russross/blackfriday/v2"
)

var extraNewlines = regexp.MustCompile(`\n{3,}`)

// ToPlainText strips markdown formatting that models sometimes add to a
// translation, keeping the text, line structure and list markers.
func ToPlainText(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return markdown
	}

	out := blackfriday.Run([]byte(markdown),
		blackfriday.WithExtensions(blackfriday.CommonExtensions),
		blackfriday.WithRenderer(&plainRenderer{}),
	)

	text := extraNewlines.ReplaceAllString(string(out), "\n\n")
	return strings.TrimSpace(text)
}

// plainRenderer implements blackfriday.Renderer emitting plain text.
type plainRenderer struct {
	itemNumbers []int
}

func (r *plainRenderer) RenderHeader(w io.Writer, ast *blackfriday.Node) {}

func (r *plainRenderer) RenderFooter(w io.Writer, ast *blackfriday.Node) {}

func (r *plainRenderer) RenderNode(w io.Writer, node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
	switch node.Type {
	case blackfriday.Text, blackfriday.Code, blackfriday.HTMLSpan:
		w.Write(node.Literal)
	case blackfriday.CodeBlock:
		w.Write(bytes.TrimRight(node.Literal, "\n"))
		w.Write([]byte("\n\n"))
	case blackfriday.Softbreak, blackfriday.Hardbreak:
		w.Write([]byte("\n"))
	case blackfriday.Paragraph:
		if !entering {
			if inTightList(node) {
				w.Write([]byte("\n"))
			} else {
				w.Write([]byte("\n\n"))
			}
		}
	case blackfriday.Heading, blackfriday.BlockQuote, blackfriday.Table:
		if !entering {
			w.Write([]byte("\n\n"))
		}
	case blackfriday.TableRow:
		if !entering {
			w.Write([]byte("\n"))
		}
	case blackfriday.TableCell:
		if !entering && node.Next != nil {
			w.Write([]byte("\t"))
		}
	case blackfriday.List:
		if entering {
			r.itemNumbers = append(r.itemNumbers, 0)
		} else {
			r.itemNumbers = r.itemNumbers[:len(r.itemNumbers)-1]
			w.Write([]byte("\n"))
		}
	case blackfriday.Item:
		if entering {
			depth := len(r.itemNumbers)
			w.Write([]byte(strings.Repeat("  ", max(depth-1, 0))))
			if node.ListFlags&blackfriday.ListTypeOrdered != 0 && depth > 0 {
				r.itemNumbers[depth-1]++
				w.Write([]byte(strconv.Itoa(r.itemNumbers[depth-1]) + ". "))
			} else {
				w.Write([]byte("- "))
			}
		}
	case blackfriday.HorizontalRule:
		w.Write([]byte("\n"))
	}
	return blackfriday.GoToNext
}

func inTightList(node *blackfriday.Node) bool {
	item := node.Parent
	if item == nil || item.Type != blackfriday.Item || item.Parent == nil {
		return false
	}
	return item.Parent.Tight
}
