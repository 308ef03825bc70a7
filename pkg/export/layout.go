package export

import (
	"fmt"
	"strings"

	"github.com/keepsake-archive/keepsake/pkg/document"
)

// signatureFields are rendered with a ruled space for a physical
// signature; their typed values are deliberately ignored.
var signatureFields = map[string]struct{}{
	"Signature":          {},
	"Testator Signature": {},
}

const signatureRule = "______________________________"

// TextLayout renders the artifact as a plain-text document. It is the
// reference Layout; a typeset implementation can replace it without the
// engine noticing.
type TextLayout struct{}

// Render implements Layout.
func (TextLayout) Render(art Artifact) ([]byte, error) {
	var b strings.Builder

	owner := art.Spotlight.OwnerName
	fmt.Fprintf(&b, "PERSONAL ARCHIVE - %s\n\n", owner)
	recipient := strings.TrimSpace(art.Spotlight.RecipientTitle + " " + art.Spotlight.RecipientName)
	fmt.Fprintf(&b, "FOR THE SOLE ATTENTION OF: %s\n\n", recipient)
	b.WriteString(art.Spotlight.Foreword)
	b.WriteString("\n\n")
	b.WriteString(art.Spotlight.Signoff)
	b.WriteString("\n")

	for _, sec := range art.Sections {
		b.WriteString("\n\n")
		b.WriteString(strings.ToUpper(sec.Title))
		b.WriteString("\n")
		b.WriteString(strings.Repeat("=", len(sec.Title)))
		b.WriteString("\n")
		if desc := CleanText(sec.Description); desc != "" {
			b.WriteString(desc)
			b.WriteString("\n")
		}
		renderNodes(&b, sec.Fields, 0)
	}

	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", 60))
	fmt.Fprintf(&b, "\nDate Generated: %s\n", art.GeneratedAt.Format("Mon, 02 Jan 2006 15:04:05 MST"))
	return []byte(b.String()), nil
}

func renderNodes(b *strings.Builder, nodes []document.Node, depth int) {
	ordinals := make(map[string]int)
	for _, node := range nodes {
		if node.Leaf() {
			renderLeaf(b, node, depth)
			continue
		}
		name := node.Name
		if node.Repeat {
			ordinals[node.Name]++
			name = fmt.Sprintf("%s (%d)", node.Name, ordinals[node.Name])
		}
		indent := strings.Repeat("  ", depth)
		fmt.Fprintf(b, "\n%s%s\n", indent, name)
		renderNodes(b, node.Fields, depth+1)
	}
}

func renderLeaf(b *strings.Builder, node document.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if _, ok := signatureFields[node.Name]; ok {
		fmt.Fprintf(b, "%s%s:\n\n%s%s\n", indent, node.Name, indent, signatureRule)
		return
	}
	value := node.Value
	if value == "" {
		value = "(empty)"
	}
	fmt.Fprintf(b, "%s%s: %s\n", indent, node.Name, value)
	if node.Name == "Date" {
		fmt.Fprintf(b, "%s%s\n", indent, signatureRule)
	}
}
