// Package tree turns a flat set of page URLs into an ordered folder
// hierarchy with aggregate page counts.
package tree

import (
	"path"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ramkansal/sitescout/internal/canonical"
)

// Kind distinguishes the root from folder nodes.
type Kind string

const (
	KindRoot   Kind = "root"
	KindFolder Kind = "folder"
)

// RootID is the id of every tree's root node.
const RootID = "root"

// Page is a URL owned by a node.
type Page struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

// Node is one level of the site outline. Count is the number of pages
// owned by the node and all of its descendants.
type Node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Kind     Kind    `json:"kind"`
	Children []*Node `json:"children"`
	URLs     []Page  `json:"urls"`
	Count    int     `json:"count"`
}

// entry is a node under construction.
type entry struct {
	id       string
	name     string
	kind     Kind
	children map[string]*entry
	pages    []Page
}

func newEntry(id, name string, kind Kind) *entry {
	return &entry{id: id, name: name, kind: kind, children: make(map[string]*entry)}
}

// Build groups urls by path segment under a root named after base's host.
// The result depends only on the set of URLs, not on their order.
func Build(base canonical.URL, urls []canonical.URL) *Node {
	byKey := make(map[string]canonical.URL, len(urls))
	for _, u := range urls {
		if !u.IsZero() {
			byKey[u.String()] = u
		}
	}
	keys := make([]string, 0, len(byKey))
	for k := range byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rootName := base.Host()
	if rootName == "" {
		rootName = "Home"
	}
	root := newEntry(RootID, rootName, KindRoot)

	// table maps a segment chain to its node so parents are never re-walked.
	table := map[string]*entry{"": root}
	for _, k := range keys {
		u := byKey[k]
		segs := u.Segments()

		node := root
		chain := ""
		for _, seg := range segs {
			chain += "/" + seg
			child, ok := table[chain]
			if !ok {
				child = newEntry(chain, Humanize(seg), KindFolder)
				table[chain] = child
				node.children[seg] = child
			}
			node = child
		}
		node.pages = append(node.pages, Page{URL: k, Title: title(segs)})
	}

	return freeze(root)
}

// freeze converts the mutable table entries into the sorted output shape.
func freeze(e *entry) *Node {
	n := &Node{
		ID:       e.id,
		Name:     e.name,
		Kind:     e.kind,
		Children: make([]*Node, 0, len(e.children)),
		URLs:     append([]Page{}, e.pages...),
	}
	sort.Slice(n.URLs, func(i, j int) bool { return n.URLs[i].URL < n.URLs[j].URL })

	n.Count = len(n.URLs)
	for _, c := range e.children {
		child := freeze(c)
		n.Count += child.Count
		n.Children = append(n.Children, child)
	}
	sort.Slice(n.Children, func(i, j int) bool {
		a, b := n.Children[i], n.Children[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return n
}

func title(segs []string) string {
	if len(segs) == 0 {
		return "Home"
	}
	return Humanize(segs[len(segs)-1])
}

// Humanize turns a path segment such as "getting-started_guide.html" into
// "Getting Started Guide".
func Humanize(seg string) string {
	name := seg
	if ext := path.Ext(name); ext != "" && ext != name && isAlpha(ext[1:]) {
		name = strings.TrimSuffix(name, ext)
	}
	name = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return ' '
		}
		return r
	}, name)
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return seg
	}
	// Casers carry state, so each call gets its own.
	return cases.Title(language.English).String(name)
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}

// Walk calls fn for every node in display order, parents before children.
func (n *Node) Walk(fn func(n *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int), depth int) {
	fn(n, depth)
	for _, c := range n.Children {
		c.walk(fn, depth+1)
	}
}

// Flatten returns every owned URL in display order.
func (n *Node) Flatten() []string {
	var out []string
	n.Walk(func(n *Node, _ int) {
		for _, p := range n.URLs {
			out = append(out, p.URL)
		}
	})
	return out
}
