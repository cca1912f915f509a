package router

import (
	"strings"

	"github.com/vango-dev/starter/pkg/routepath"
)

// node is a node in the radix tree.
type node struct {
	// segment is the static path segment this node matches.
	segment string

	// paramName is the parameter name for :param and *catchAll nodes.
	paramName string

	isParam    bool
	isCatchAll bool

	// record is the matchable record ending at this node.
	record *Record

	children      []*node
	paramChild    *node
	catchAllChild *node
}

func newNode(segment string) *node {
	return &node{segment: segment}
}

func (n *node) findChild(segment string) *node {
	for _, child := range n.children {
		if child.segment == segment {
			return child
		}
	}
	return nil
}

func (n *node) addChild(segment string) *node {
	if child := n.findChild(segment); child != nil {
		return child
	}
	child := newNode(segment)
	n.children = append(n.children, child)
	return child
}

func (n *node) addParamChild(name string) *node {
	if n.paramChild == nil {
		n.paramChild = &node{isParam: true, paramName: name}
	}
	return n.paramChild
}

func (n *node) addCatchAllChild(name string) *node {
	if n.catchAllChild == nil {
		n.catchAllChild = &node{isCatchAll: true, paramName: name}
	}
	return n.catchAllChild
}

// insert adds a pattern to the tree and returns its terminal node.
func (n *node) insert(pattern string) *node {
	current := n
	for _, seg := range routepath.Segments(pattern) {
		switch {
		case strings.HasPrefix(seg, "*"):
			return current.addCatchAllChild(seg[1:])
		case strings.HasPrefix(seg, ":"):
			current = current.addParamChild(seg[1:])
		default:
			current = current.addChild(seg)
		}
	}
	return current
}

// match finds the record for the given segments, filling params.
// Static children are tried before parameters, parameters before catch-alls.
func (n *node) match(segments []string, params map[string]string) (*Record, bool) {
	if len(segments) == 0 {
		if n.record != nil {
			return n.record, true
		}
		// An empty catch-all still matches ("/files" against "/files/*rest").
		if n.catchAllChild != nil && n.catchAllChild.record != nil {
			params[n.catchAllChild.paramName] = ""
			return n.catchAllChild.record, true
		}
		return nil, false
	}

	segment := segments[0]
	remaining := segments[1:]

	if child := n.findChild(segment); child != nil {
		if rec, ok := child.match(remaining, params); ok {
			return rec, true
		}
	}

	if n.paramChild != nil {
		if decoded, err := routepath.DecodeSegment(segment, false); err == nil {
			params[n.paramChild.paramName] = decoded
			if rec, ok := n.paramChild.match(remaining, params); ok {
				return rec, true
			}
			delete(params, n.paramChild.paramName)
		}
	}

	if n.catchAllChild != nil && n.catchAllChild.record != nil {
		rest := strings.Join(segments, "/")
		if decoded, err := routepath.DecodeSegment(rest, true); err == nil {
			params[n.catchAllChild.paramName] = decoded
			return n.catchAllChild.record, true
		}
	}

	return nil, false
}
