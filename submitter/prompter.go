package submitter

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// LinePrompter runs a line-oriented confirmation dialog on In/Out. The user
// may submit, edit the note, skip the booking, or cancel all remaining ones.
type LinePrompter struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{In: in, Out: out, reader: bufio.NewReader(in)}
}

func (p *LinePrompter) Confirm(label string, timeMinutes int, note string) (Decision, string, error) {
	for {
		fmt.Fprintf(p.Out, "\n━━━ Ready To Submit: %s (%d min) ━━━\n", label, timeMinutes)
		if strings.TrimSpace(note) == "" {
			fmt.Fprintln(p.Out, "(no activity notes)")
		} else {
			fmt.Fprintln(p.Out, note)
		}
		fmt.Fprint(p.Out, "[y]es / [e]dit / [s]kip / [c]ancel remaining: ")

		line, err := p.reader.ReadString('\n')
		if err != nil && line == "" {
			return DecisionCancel, note, err
		}

		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
			return DecisionSubmit, note, nil
		case "s", "skip":
			return DecisionSkip, note, nil
		case "c", "cancel":
			return DecisionCancel, note, nil
		case "e", "edit":
			edited, err := p.readNote()
			if err != nil {
				return DecisionCancel, note, err
			}
			note = edited
		default:
			fmt.Fprintln(p.Out, "Please answer y, e, s or c.")
		}
	}
}

// readNote collects replacement note lines until a lone "." line.
func (p *LinePrompter) readNote() (string, error) {
	fmt.Fprintln(p.Out, "Enter the new note, end with a single '.' line:")
	var lines []string
	for {
		line, err := p.reader.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		if trimmed == "." {
			return strings.Join(lines, "\n"), nil
		}
		if err != nil {
			if err == io.EOF {
				if trimmed != "" {
					lines = append(lines, trimmed)
				}
				return strings.Join(lines, "\n"), nil
			}
			return "", err
		}
		lines = append(lines, trimmed)
	}
}
