package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// form is a vertical stack of labelled text inputs with a single focused field.
type form struct {
	labels []string
	inputs []textinput.Model
	focus  int
}

type field struct {
	label  string
	secret bool
	limit  int
}

func newForm(fields ...field) form {
	f := form{labels: make([]string, len(fields)), inputs: make([]textinput.Model, len(fields))}
	for i, fd := range fields {
		in := textinput.New()
		in.Placeholder = fd.label
		in.Prompt = "› "
		in.CharLimit = fd.limit
		if fd.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		f.labels[i] = fd.label
		f.inputs[i] = in
	}
	if len(f.inputs) > 0 {
		f.inputs[0].Focus()
	}
	return f
}

func newLoginForm() form {
	return newForm(field{label: "사용자명", limit: 64}, field{label: "비밀번호", secret: true})
}

func newRegisterForm() form {
	return newForm(
		field{label: "사용자명", limit: 64},
		field{label: "비밀번호", secret: true},
		field{label: "이름"},
	)
}

func (f *form) setFocus(i int) {
	n := len(f.inputs)
	f.focus = ((i % n) + n) % n
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

func (f *form) next() { f.setFocus(f.focus + 1) }
func (f *form) prev() { f.setFocus(f.focus - 1) }

// onLast reports whether the last field has focus.
func (f form) onLast() bool { return f.focus == len(f.inputs)-1 }

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// values returns the trimmed input values. Passwords are not trimmed.
func (f form) values() []string {
	vals := make([]string, len(f.inputs))
	for i, in := range f.inputs {
		if in.EchoMode == textinput.EchoPassword {
			vals[i] = in.Value()
		} else {
			vals[i] = strings.TrimSpace(in.Value())
		}
	}
	return vals
}

// complete reports whether every field has a value.
func (f form) complete() bool {
	for _, v := range f.values() {
		if v == "" {
			return false
		}
	}
	return true
}

func (f form) view() string {
	var b strings.Builder
	for i, in := range f.inputs {
		b.WriteString(styles.label.Render(f.labels[i]))
		b.WriteString("\n")
		b.WriteString(in.View())
		b.WriteString("\n\n")
	}
	return b.String()
}
