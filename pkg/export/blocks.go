package export

import "strings"

// BlockKind classifies one line of a result.
type BlockKind int

const (
	BlockParagraph BlockKind = iota
	BlockHeading
	BlockPageBreak
	BlockBlank
)

// Block is one classified line.
type Block struct {
	Kind  BlockKind
	Level int
	Text  string
}

// Blocks splits markdown into lines and classifies each one. Only the
// markers "# ", "## ", "### " and a lone "---" carry meaning; every other
// line is a paragraph.
func Blocks(markdown string) []Block {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	lines := strings.Split(markdown, "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "### "):
			blocks = append(blocks, Block{Kind: BlockHeading, Level: 3, Text: strings.TrimSpace(line[4:])})
		case strings.HasPrefix(line, "## "):
			blocks = append(blocks, Block{Kind: BlockHeading, Level: 2, Text: strings.TrimSpace(line[3:])})
		case strings.HasPrefix(line, "# "):
			blocks = append(blocks, Block{Kind: BlockHeading, Level: 1, Text: strings.TrimSpace(line[2:])})
		case strings.TrimSpace(line) == "---":
			blocks = append(blocks, Block{Kind: BlockPageBreak})
		case strings.TrimSpace(line) == "":
			blocks = append(blocks, Block{Kind: BlockBlank})
		default:
			blocks = append(blocks, Block{Kind: BlockParagraph, Text: line})
		}
	}
	return blocks
}

var inlineMarkers = strings.NewReplacer("**", "", "__", "", "`", "")

// StripInline removes bold and code markers from a paragraph.
func StripInline(text string) string {
	return inlineMarkers.Replace(text)
}
