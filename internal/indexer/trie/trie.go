// Package trie implements the vocabulary prefix tree used for membership
// tests, prefix autocomplete and word-break segmentation.
package trie

import (
	"sort"
)

type node struct {
	children map[rune]*node
	terminal bool
}

func newNode() *node {
	return &node{children: make(map[rune]*node)}
}

// Trie is a character-level prefix tree. It is not safe for concurrent
// mutation; the engine serialises writers.
type Trie struct {
	root  *node
	count int
}

// New creates an empty Trie.
func New() *Trie {
	return &Trie{root: newNode()}
}

// Insert adds token, creating missing nodes and marking the last one
// terminal. Inserting an existing token is a no-op. Empty tokens are
// ignored.
func (t *Trie) Insert(token string) {
	if token == "" {
		return
	}
	n := t.root
	for _, c := range token {
		child, ok := n.children[c]
		if !ok {
			child = newNode()
			n.children[c] = child
		}
		n = child
	}
	if !n.terminal {
		n.terminal = true
		t.count++
	}
}

// Contains reports whether token was inserted.
func (t *Trie) Contains(token string) bool {
	n := t.find(token)
	return n != nil && n.terminal && token != ""
}

// HasPrefix reports whether any stored token starts with prefix.
func (t *Trie) HasPrefix(prefix string) bool {
	return t.find(prefix) != nil
}

// Len returns the number of distinct tokens stored.
func (t *Trie) Len() int {
	return t.count
}

// PrefixSearch returns up to limit stored tokens starting with prefix, in
// lexicographic order. A limit <= 0 means no limit. The prefix itself is
// included when it is a stored token.
func (t *Trie) PrefixSearch(prefix string, limit int) []string {
	results := make([]string, 0)
	n := t.find(prefix)
	if n == nil {
		return results
	}
	buf := []rune(prefix)
	collect(n, buf, limit, &results)
	return results
}

// collect walks n depth-first, children in ascending rune order, appending
// every terminal it reaches. It returns false once limit is hit.
func collect(n *node, buf []rune, limit int, out *[]string) bool {
	if n.terminal && len(buf) > 0 {
		*out = append(*out, string(buf))
		if limit > 0 && len(*out) >= limit {
			return false
		}
	}
	for _, c := range sortedKeys(n) {
		if !collect(n.children[c], append(buf, c), limit, out) {
			return false
		}
	}
	return true
}

func (t *Trie) find(prefix string) *node {
	n := t.root
	for _, c := range prefix {
		child, ok := n.children[c]
		if !ok {
			return nil
		}
		n = child
	}
	return n
}

func sortedKeys(n *node) []rune {
	keys := make([]rune, 0, len(n.children))
	for c := range n.children {
		keys = append(keys, c)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
