package iarray

import (
	"fmt"
	"io"
	"strings"
)

// Dot outputs the internal structure of an array in Graphviz DOT format
// (for debugging purposes). Nodes are drawn as records of their occupied
// slots, entries as boxes. Slots carrying a tag are highlighted.
func (a *Array) Dot(w io.Writer) error {
	a.Lock()
	defer a.Unlock()
	g := dotGraph{a: a}
	g.add("strict digraph {\n")
	g.add("\tnode [fontname=Arial,fontsize=12];\n")
	head := a.head.Load()
	switch {
	case head == nil:
		g.nodelist += "\"head\" [label=\"empty\",shape=plaintext];\n"
	case isNode(head):
		n := a.nodeOf(head)
		g.nodelist += "\"head\" [label=\"head\",shape=plaintext];\n"
		g.edgelist += fmt.Sprintf("\"head\" -> \"n%d\";\n", n.handle)
		g.node(n, 0)
	default:
		g.nodelist += "\"head\" [label=\"head\",shape=plaintext];\n"
		g.leaf("e0", deref(head), 0, 0, a.taggedMask())
		g.edgelist += "\"head\" -> \"e0\";\n"
	}
	g.add(g.nodelist)
	g.add(g.edgelist)
	g.add("}\n")
	_, err := io.WriteString(w, g.out.String())
	return err
}

type dotGraph struct {
	a                  *Array
	nodelist, edgelist string
	out                strings.Builder
}

func (g *dotGraph) add(s string) {
	g.out.WriteString(s)
}

func (g *dotGraph) node(n *node, base uint64) {
	var ports []string
	for off := 0; off < ChunkSize; off++ {
		e := n.slot(off)
		if e == nil || isSibling(e) {
			continue
		}
		index := base + uint64(off)<<n.shift
		ports = append(ports, fmt.Sprintf("<s%d> %d", off, off))
		tags := n.slotTags(off)
		switch {
		case isNode(e):
			child := g.a.nodeOf(e)
			g.edgelist += fmt.Sprintf("\"n%d\":s%d -> \"n%d\"%s;\n", n.handle, off, child.handle, edgeDotStyles(tags))
			g.node(child, index)
		default:
			id := fmt.Sprintf("e%d_%d", n.handle, off)
			last := off
			for last+1 < ChunkSize && isSibling(n.slot(last+1)) && siblingOffset(n.slot(last+1)) == off {
				last++
			}
			g.leaf(id, *e, index, index+(uint64(last-off+1)<<n.shift)-1, tags)
			g.edgelist += fmt.Sprintf("\"n%d\":s%d -> \"%s\";\n", n.handle, off, id)
		}
	}
	label := fmt.Sprintf("#%d shift %d|%s", n.handle, n.shift, strings.Join(ports, "|"))
	g.nodelist += fmt.Sprintf("\"n%d\" [label=\"{%s}\" %s];\n", n.handle, label, nodeDotStyles(n))
}

func (g *dotGraph) leaf(id string, e Entry, first, last uint64, tags uint8) {
	label := fmt.Sprintf("%d", first)
	if last > first {
		label = fmt.Sprintf("%d–%d", first, last)
	}
	label += "\\n" + strings.ReplaceAll(e.String(), "\"", "'")
	g.nodelist += fmt.Sprintf("\"%s\" [label=\"%s\" %s];\n", id, label, entryDotStyles(tags))
}

// slotTags returns the tag bits of a slot, tag t in bit t.
func (n *node) slotTags(off int) uint8 {
	var m uint8
	for t := Tag0; t < MaxTags; t++ {
		if n.getTag(off, t) {
			m |= 1 << t
		}
	}
	return m
}

func (a *Array) taggedMask() uint8 {
	return uint8(a.tagFlags.Load())
}

func nodeDotStyles(n *node) string {
	s := ",shape=record,style=filled"
	if n.allValues {
		s += ",fillcolor=\"#e4d7a3\""
	} else {
		s += ",fillcolor=\"#a3d7e4\""
	}
	return s
}

func entryDotStyles(tags uint8) string {
	s := ",shape=box,style=filled"
	s += fmt.Sprintf(",fillcolor=\"%s\"", hextagcolors[tags&7])
	return s
}

func edgeDotStyles(tags uint8) string {
	if tags == 0 {
		return ""
	}
	return fmt.Sprintf(" [color=\"%s\",penwidth=2]", hextagcolors[tags&7])
}

// colors by tag bit combination
var hextagcolors = [...]string{"white", "#FFCCAA", "#AACCFF", "#FF9944",
	"#AAEEBB", "#FFDDCC", "#66AAFF", "#FF7700"}
