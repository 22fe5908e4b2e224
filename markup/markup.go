package markup

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nixxel-company-limited/escpos-printout-server/codepage"
	"github.com/nixxel-company-limited/escpos-printout-server/printout"
)

// ErrSyntax is returned for input that is not a single well-formed element tree
var ErrSyntax = errors.New("markup syntax error")

// Parse reads one XML document and returns its root element as a node tree.
// Character data is kept verbatim, except whitespace between child elements.
func Parse(r io.Reader) (*printout.Node, error) {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	dec.CharsetReader = charsetReader

	var (
		root  *printout.Node
		stack []*printout.Node
		text  []*strings.Builder
	)

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSyntax, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if root != nil && len(stack) == 0 {
				return nil, fmt.Errorf("%w: multiple root elements", ErrSyntax)
			}
			node := &printout.Node{
				Name:       t.Name.Local,
				Attributes: make(map[string]string, len(t.Attr)),
			}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				node.Attributes[a.Name.Local] = a.Value
			}
			if len(stack) == 0 {
				root = node
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			}
			stack = append(stack, node)
			text = append(text, &strings.Builder{})

		case xml.EndElement:
			node := stack[len(stack)-1]
			value := text[len(text)-1].String()
			if len(node.Children) == 0 || strings.TrimSpace(value) != "" {
				node.Value = value
			}
			stack = stack[:len(stack)-1]
			text = text[:len(text)-1]

		case xml.CharData:
			if len(text) > 0 {
				text[len(text)-1].Write(t)
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrSyntax)
	}
	return root, nil
}

// ParseString parses markup held in a string
func ParseString(s string) (*printout.Node, error) {
	return Parse(strings.NewReader(s))
}

// charsetReader decodes documents that declare a non UTF-8 encoding
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	enc, err := codepage.Lookup(label)
	if err != nil {
		return nil, fmt.Errorf("document encoding: %w", err)
	}
	return enc.NewDecoder().Reader(input), nil
}
