// Package locate maps document fields to small, composable lookup strategies.
// Every locator answers "value, found" and never fails the caller: a
// locator that panics on unexpected markup is reported as not found.
package locate

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"leadscout/internal/scrape/util"
)

type Locator interface {
	Locate(root *goquery.Selection) (string, bool)
}

type Func func(root *goquery.Selection) (string, bool)

func (f Func) Locate(root *goquery.Selection) (string, bool) { return f(root) }

// Run evaluates l against root, turning a panic into "not found".
func Run(l Locator, root *goquery.Selection) (v string, ok bool, panicked any) {
	defer func() {
		if r := recover(); r != nil {
			v, ok, panicked = "", false, r
		}
	}()
	v, ok = l.Locate(root)
	return v, ok, nil
}

// Text takes the cleaned text of the first element matching selector.
func Text(selector string) Locator {
	return Func(func(root *goquery.Selection) (string, bool) {
		v := util.CleanText(root.Find(selector).First().Text())
		return v, v != ""
	})
}

// ClassContains selects tag elements whose raw class attribute contains
// fragment. Unlike a CSS class selector it tolerates variant class lists
// such as "company with_img g_3" or "company with_img g_12 premium".
func ClassContains(root *goquery.Selection, tag, fragment string) *goquery.Selection {
	return root.Find(tag + "[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		class, _ := s.Attr("class")
		return strings.Contains(class, fragment)
	})
}

// LabelNext finds the first tag element whose only string contains label and
// returns the text of the next tag element in document order.
func LabelNext(tag, label string) Locator {
	return Func(func(root *goquery.Selection) (string, bool) {
		all := root.Find(tag)
		at := -1
		all.EachWithBreak(func(i int, s *goquery.Selection) bool {
			if str, ok := singleString(s.Get(0)); ok && strings.Contains(str, label) {
				at = i
				return false
			}
			return true
		})
		if at < 0 || at+1 >= all.Length() {
			return "", false
		}
		v := util.CleanText(all.Eq(at + 1).Text())
		return v, v != ""
	})
}

// LabelParent finds the first element matching labelSel whose string is
// exactly label and returns its parent's stripped text minus the label.
func LabelParent(labelSel, label string) Locator {
	return Func(func(root *goquery.Selection) (string, bool) {
		lab := exactLabel(root.Find(labelSel), label)
		if lab.Length() == 0 || lab.Parent().Length() == 0 {
			return "", false
		}
		return withoutLabel(lab.Parent(), label)
	})
}

// ContainerWithLabel scans containers in order for the first one holding a
// labelSel element whose string is exactly label, and returns the
// container's stripped text minus the label.
func ContainerWithLabel(containerSel, labelSel, label string) Locator {
	return Func(func(root *goquery.Selection) (string, bool) {
		var v string
		var found bool
		root.Find(containerSel).EachWithBreak(func(_ int, c *goquery.Selection) bool {
			if exactLabel(c.Find(labelSel), label).Length() == 0 {
				return true
			}
			v, found = withoutLabel(c, label)
			return false
		})
		return v, found
	})
}

// FirstOf returns the first non-empty value among ls, in order.
func FirstOf(ls ...Locator) Locator {
	return Func(func(root *goquery.Selection) (string, bool) {
		for _, l := range ls {
			if v, ok := l.Locate(root); ok && v != "" {
				return v, true
			}
		}
		return "", false
	})
}

// Map post-processes a found value. An empty result counts as not found.
func Map(l Locator, fn func(string) string) Locator {
	return Func(func(root *goquery.Selection) (string, bool) {
		v, ok := l.Locate(root)
		if !ok {
			return "", false
		}
		v = fn(v)
		return v, v != ""
	})
}

func exactLabel(sel *goquery.Selection, label string) *goquery.Selection {
	return sel.FilterFunction(func(_ int, s *goquery.Selection) bool {
		str, ok := singleString(s.Get(0))
		return ok && strings.TrimSpace(str) == label
	}).First()
}

func withoutLabel(container *goquery.Selection, label string) (string, bool) {
	v := strings.TrimSpace(strings.ReplaceAll(util.StrippedText(container), label, ""))
	return v, true
}

// singleString mirrors the "element has exactly one string" rule: an element
// qualifies when it has a single child that is either text or another
// element that qualifies.
func singleString(n *html.Node) (string, bool) {
	if n == nil || n.FirstChild == nil || n.FirstChild != n.LastChild {
		return "", false
	}
	c := n.FirstChild
	switch c.Type {
	case html.TextNode:
		return c.Data, true
	case html.ElementNode:
		return singleString(c)
	}
	return "", false
}
