// =============================================================================
// XML Invoice Converter - Safe XML Parser
// =============================================================================
//
// This module turns validated invoice bytes into an in-memory structural tree
// with hostile-input defenses baked into the decoder:
//
//   - No DTD processing: any DOCTYPE or entity declaration is rejected
//     outright, whether or not the entity is referenced.
//   - No entity expansion: custom entity references fail as malformed XML.
//   - No external resource fetching of any kind.
//   - A nesting depth limit, enforced both by the streaming pre-scan (before
//     any tree is built) and again while building the tree. The duplication
//     across the trust boundary is intentional.
//
// The tree is a plain ordered-children structure: element name, attributes,
// text content, child list. Namespace prefixes are dropped; lookups match on
// local names, since FatturaPA files appear both with and without the "p:"
// prefix in the wild.
//
// =============================================================================

package xmltree

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/officina-data/invoiceconv/internal/errors"
)

// =============================================================================
// NODE STRUCTURE
// =============================================================================

// Node is one element of the parsed tree.
type Node struct {
	// Name is the element's local name, without any namespace prefix.
	Name string

	// Attrs holds the element attributes in document order.
	Attrs []Attr

	// Text is the concatenated character data directly inside this element,
	// whitespace-trimmed.
	Text string

	// Children holds the child elements in document order.
	Children []*Node
}

// Attr is a single attribute as a key/value pair.
type Attr struct {
	Name  string
	Value string
}

// Child returns the first direct child with the given local name, or nil.
func (n *Node) Child(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenNamed returns all direct children with the given local name,
// preserving document order.
func (n *Node) ChildrenNamed(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// Find walks the given path of local names and returns the first matching
// descendant, or nil when any step is missing.
func (n *Node) Find(path ...string) *Node {
	current := n
	for _, name := range path {
		current = current.Child(name)
		if current == nil {
			return nil
		}
	}
	return current
}

// FindText returns the text content at the given path, or "" when the path
// does not exist.
func (n *Node) FindText(path ...string) string {
	found := n.Find(path...)
	if found == nil {
		return ""
	}
	return found.Text
}

// =============================================================================
// SCANNING (pre-parse defense)
// =============================================================================

// Scan streams through the document without materializing it, enforcing the
// depth limit and the DOCTYPE/entity ban. It is the cheap first line of
// defense: a bomb is rejected before any tree exists.
func Scan(data []byte, maxDepth int) error {
	d := newDecoder(data)

	depth := 0
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return malformed(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth > maxDepth {
				return errors.NewErrorf("nesting depth exceeds %d", maxDepth).
					WithHint("the document is nested too deeply to be a legitimate invoice").
					Mark(errors.ErrExcessiveNesting)
			}
		case xml.EndElement:
			depth--
		case xml.Directive:
			if err := rejectDirective(t); err != nil {
				return err
			}
		}
	}
}

// =============================================================================
// PARSING
// =============================================================================

// Parse builds the structural tree from validated bytes. The same depth and
// directive checks run again here as the second defense layer.
func Parse(data []byte, maxDepth int) (*Node, error) {
	d := newDecoder(data)

	var root *Node
	var stack []*Node

	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, malformed(err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack)+1 > maxDepth {
				return nil, errors.NewErrorf("nesting depth exceeds %d", maxDepth).
					Mark(errors.ErrExcessiveNesting)
			}
			node := &Node{Name: t.Name.Local}
			for _, a := range t.Attr {
				node.Attrs = append(node.Attrs, Attr{Name: a.Name.Local, Value: a.Value})
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, errors.NewError("multiple root elements").
						Mark(errors.ErrMalformedXML)
				}
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)

		case xml.EndElement:
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) > 0 {
				current := stack[len(stack)-1]
				current.Text += string(t)
			}

		case xml.Directive:
			if err := rejectDirective(t); err != nil {
				return nil, err
			}
		}
	}

	if root == nil {
		return nil, errors.NewError("document contains no elements").
			Mark(errors.ErrMalformedXML)
	}

	trimText(root)
	return root, nil
}

// =============================================================================
// DECODER HARDENING
// =============================================================================

// newDecoder returns a decoder that resolves nothing: no custom entities
// (references to them fail as malformed input), no external charset
// conversion, strict well-formedness.
func newDecoder(data []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = true
	d.Entity = map[string]string{}
	d.CharsetReader = nil
	return d
}

// rejectDirective refuses DOCTYPE and entity declarations. Merely ignoring
// them is not enough; their presence alone marks the document as hostile.
func rejectDirective(dir xml.Directive) error {
	upper := strings.ToUpper(strings.TrimSpace(string(dir)))
	if strings.HasPrefix(upper, "DOCTYPE") || strings.Contains(upper, "<!ENTITY") || strings.HasPrefix(upper, "ENTITY") {
		return errors.NewError("document declares a DOCTYPE or entity").
			WithHint("DTDs and entity declarations are not accepted").
			Mark(errors.ErrUnsafeEntityDeclaration)
	}
	return nil
}

// malformed wraps a decoder error as malformed_xml, keeping the line number
// when the underlying syntax error carries one.
func malformed(err error) error {
	var syn *xml.SyntaxError
	if errors.As(err, &syn) {
		return errors.NewErrorf("line %d: %s", syn.Line, syn.Msg).
			WithHintf("the file is not valid XML (line %d)", syn.Line).
			Mark(errors.ErrMalformedXML)
	}
	return errors.WithError(err).
		WithHint("the file is not valid XML").
		Mark(errors.ErrMalformedXML)
}

// trimText trims surrounding whitespace from every node's text content.
// Indentation between child elements otherwise pollutes leaf values.
func trimText(n *Node) {
	n.Text = strings.TrimSpace(n.Text)
	for _, c := range n.Children {
		trimText(c)
	}
}
