// Package render turns validation reports into display trees.
//
// Render is a pure function: it reads the report, allocates a fresh tree and
// never touches the network or the file system. Printing the tree is a
// separate step (see Printer).
package render

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/bft-labs/ipcheck/internal/domain"
)

// Class is the visual classification of a node.
type Class string

const (
	ClassNone    Class = ""
	ClassSuccess Class = "success"
	ClassFailure Class = "failure"
	ClassDanger  Class = "danger"
	ClassWarning Class = "warning"
	ClassInfo    Class = "info"
)

// Kind is the structural role of a node.
type Kind string

const (
	KindSection Kind = "section"
	KindText    Kind = "text"
	KindAlert   Kind = "alert"
	KindCard    Kind = "card"
	KindHeading Kind = "heading"
	KindBody    Kind = "body"
)

// Node is one element of a display tree.
type Node struct {
	Kind     Kind   `json:"kind"`
	Text     string `json:"text,omitempty"`
	Class    Class  `json:"class,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// Tree is a rendered report.
type Tree struct {
	Root Node `json:"root"`
}

// Section titles.
const (
	TitleResult  = "Validation Result"
	TitleStatus  = "Status"
	TitleEntries = "Validation Entries"
)

// dateLayout is the locale-independent UTC form used for report dates.
const dateLayout = http.TimeFormat

// Render builds the display tree for a report.
func Render(report domain.ValidationReport) Tree {
	entries := make([]Node, 0, len(report.ValidationEntries))
	for i, e := range report.ValidationEntries {
		entries = append(entries, entryNode(i, e))
	}

	return Tree{Root: Node{
		Kind: KindSection,
		Text: TitleResult,
		Children: []Node{
			statusNode(report.Status),
			{Kind: KindSection, Text: TitleEntries, Children: entries},
		},
	}}
}

func statusNode(s domain.ReportStatus) Node {
	class := ClassFailure
	if s.Valid {
		class = ClassSuccess
	}
	return Node{
		Kind: KindSection,
		Text: TitleStatus,
		Children: []Node{
			{Kind: KindText, Text: "Date: " + s.Date.UTC().Format(dateLayout)},
			{Kind: KindAlert, Text: "Validation Result: " + strconv.FormatBool(s.Valid), Class: class},
		},
	}
}

func entryNode(index int, e domain.Entry) Node {
	return Node{
		Kind:  KindCard,
		Class: ClassForLevel(e.Level),
		Children: []Node{
			{Kind: KindHeading, Text: fmt.Sprintf("%d. %s: %s", index+1, e.Level, e.Message)},
			{Kind: KindBody, Text: e.Description},
		},
	}
}

// ClassForLevel maps an entry level to its classification.
// Every level, known or not, yields a class.
func ClassForLevel(level domain.Level) Class {
	switch level {
	case domain.LevelError:
		return ClassDanger
	case domain.LevelWarning:
		return ClassWarning
	default:
		return ClassInfo
	}
}

// Status returns the status section of the tree.
func (t Tree) Status() Node {
	if len(t.Root.Children) < 2 {
		return Node{}
	}
	return t.Root.Children[0]
}

// Entries returns the entry cards in display order.
func (t Tree) Entries() []Node {
	if len(t.Root.Children) < 2 {
		return nil
	}
	return t.Root.Children[1].Children
}

// Heading returns the heading text of a card node.
func (n Node) Heading() string { return n.childText(KindHeading) }

// Body returns the body text of a card node.
func (n Node) Body() string { return n.childText(KindBody) }

func (n Node) childText(kind Kind) string {
	for _, c := range n.Children {
		if c.Kind == kind {
			return c.Text
		}
	}
	return ""
}
