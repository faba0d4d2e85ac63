package render

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"
	"github.com/muesli/termenv"
)

// Format selects the printer output.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Printer writes display trees to a terminal or as JSON.
type Printer struct {
	mu     sync.Mutex
	out    io.Writer
	format Format
	styles map[Class]lipgloss.Style
	title  lipgloss.Style
	header lipgloss.Style
	body   lipgloss.Style
}

// NewPrinter creates a printer. When color is false the ASCII profile is
// forced so output carries no escape sequences.
func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	r := lipgloss.NewRenderer(out)
	if !color {
		r.SetColorProfile(termenv.Ascii)
	}
	alert := func(c string) lipgloss.Style {
		return r.NewStyle().Foreground(lipgloss.Color(c)).Bold(true)
	}
	return &Printer{
		out:    out,
		format: format,
		styles: map[Class]lipgloss.Style{
			ClassNone:    r.NewStyle(),
			ClassSuccess: alert("10"),
			ClassFailure: alert("9"),
			ClassDanger:  alert("9"),
			ClassWarning: alert("11"),
			ClassInfo:    alert("12"),
		},
		title:  r.NewStyle().Bold(true).Underline(true),
		header: r.NewStyle().Bold(true),
		body:   r.NewStyle().PaddingLeft(3),
	}
}

// Print writes the whole tree. Each call prints a complete report; nothing
// from an earlier call is carried over.
func (p *Printer) Print(tree Tree) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.format == FormatJSON {
		b, err := json.MarshalIndent(tree, "", "  ")
		if err != nil {
			return fmt.Errorf("encode tree: %w", err)
		}
		_, err = fmt.Fprintln(p.out, string(b))
		return err
	}

	var sb strings.Builder
	p.writeNode(&sb, tree.Root, 0)
	_, err := io.WriteString(p.out, sb.String())
	return err
}

func (p *Printer) writeNode(sb *strings.Builder, n Node, depth int) {
	switch n.Kind {
	case KindSection:
		if depth > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(p.title.Render(n.Text))
		sb.WriteString("\n")
		for _, c := range n.Children {
			p.writeNode(sb, c, depth+1)
		}
	case KindCard:
		style := p.style(n.Class)
		for _, c := range n.Children {
			switch c.Kind {
			case KindHeading:
				sb.WriteString(style.Render(c.Text))
			case KindBody:
				if c.Text == "" {
					continue
				}
				sb.WriteString(p.body.Render(c.Text))
			default:
				sb.WriteString(c.Text)
			}
			sb.WriteString("\n")
		}
	case KindAlert:
		sb.WriteString(p.style(n.Class).Render(n.Text))
		sb.WriteString("\n")
	case KindHeading:
		sb.WriteString(p.header.Render(n.Text))
		sb.WriteString("\n")
	default:
		sb.WriteString(n.Text)
		sb.WriteString("\n")
	}
}

func (p *Printer) style(c Class) lipgloss.Style {
	if s, ok := p.styles[c]; ok {
		return s
	}
	return p.styles[ClassNone]
}

// PrintDigest writes the checksum line shown before submission.
func (p *Printer) PrintDigest(name, algorithm, digest string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.format == FormatJSON {
		b, err := json.Marshal(map[string]string{"file": name, "algorithm": algorithm, "digest": digest})
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(p.out, string(b))
		return err
	}
	_, err := fmt.Fprintf(p.out, "%s  %s (%s)\n", digest, name, algorithm)
	return err
}
