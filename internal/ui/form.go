package ui

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/mixtape/internal/shared"
)

// field is a labelled input keyed by the name the validators use.
type field struct {
	name  string
	label string
	input textinput.Model
}

// form is a vertical stack of inputs with inline field errors and a banner for request failures.
type form struct {
	title      string
	fields     []field
	focus      int
	errs       map[string]string
	banner     string
	notice     string
	submitting bool
}

type fieldSpec struct {
	name, label string
	secret      bool
}

func newForm(title string, specs ...fieldSpec) *form {
	f := &form{title: title, errs: map[string]string{}}
	for _, s := range specs {
		in := textinput.New()
		in.Placeholder = s.label
		in.CharLimit = 256
		if s.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		f.fields = append(f.fields, field{name: s.name, label: s.label, input: in})
	}
	f.setFocus(0)
	return f
}

func loginForm() *form {
	return newForm("Log in",
		fieldSpec{name: "email", label: "Email"},
		fieldSpec{name: "password", label: "Password", secret: true},
	)
}

func registerForm() *form {
	return newForm("Create an account",
		fieldSpec{name: "username", label: "Username"},
		fieldSpec{name: "email", label: "Email"},
		fieldSpec{name: "password", label: "Password", secret: true},
	)
}

func playlistForm(title, name, description string) *form {
	f := newForm(title,
		fieldSpec{name: "name", label: "Name"},
		fieldSpec{name: "description", label: "Description"},
	)
	f.set("name", name)
	f.set("description", description)
	return f
}

func (f *form) value(name string) string {
	for _, fd := range f.fields {
		if fd.name == name {
			return fd.input.Value()
		}
	}
	return ""
}

func (f *form) set(name, v string) {
	for i := range f.fields {
		if f.fields[i].name == name {
			f.fields[i].input.SetValue(v)
		}
	}
}

func (f *form) setFocus(i int) {
	n := len(f.fields)
	if n == 0 {
		return
	}
	f.focus = ((i % n) + n) % n
	for j := range f.fields {
		if j == f.focus {
			f.fields[j].input.Focus()
		} else {
			f.fields[j].input.Blur()
		}
	}
}

// setError spreads err over the form: field messages inline, anything else in the banner.
func (f *form) setError(err error) {
	f.submitting = false
	f.errs = map[string]string{}
	f.banner = ""
	if err == nil {
		return
	}

	var verr *shared.ValidationError
	var rerr *shared.RequestError
	switch {
	case errors.As(err, &verr):
		for k, v := range verr.Fields {
			f.errs[k] = v
		}
	case errors.As(err, &rerr):
		f.banner = rerr.Message
	default:
		f.banner = err.Error()
	}
}

func (f *form) reset() {
	for i := range f.fields {
		f.fields[i].input.Reset()
	}
	f.errs = map[string]string{}
	f.banner = ""
	f.submitting = false
	f.setFocus(0)
}

// update moves focus on tab/arrow keys and forwards everything else to the focused input.
// It reports true when enter is pressed on the last field.
func (f *form) update(msg tea.Msg, keys keyMap) (tea.Cmd, bool) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.next), key.Matches(msg, keys.down):
			f.setFocus(f.focus + 1)
			return nil, false
		case key.Matches(msg, keys.prev), key.Matches(msg, keys.up):
			f.setFocus(f.focus - 1)
			return nil, false
		case key.Matches(msg, keys.enter):
			if f.focus < len(f.fields)-1 {
				f.setFocus(f.focus + 1)
				return nil, false
			}
			return nil, !f.submitting
		}
	}

	var cmd tea.Cmd
	f.fields[f.focus].input, cmd = f.fields[f.focus].input.Update(msg)
	return cmd, false
}

func (f *form) view() string {
	var b strings.Builder
	b.WriteString(styles.title.Render(f.title))
	b.WriteString("\n")

	if f.notice != "" {
		b.WriteString(styles.ok.Render(f.notice) + "\n\n")
	}
	if f.banner != "" {
		b.WriteString(styles.err.Render(f.banner) + "\n\n")
	}

	for _, fd := range f.fields {
		b.WriteString(styles.label.Render(fd.label) + "\n")
		b.WriteString(fd.input.View() + "\n")
		if msg := f.errs[fd.name]; msg != "" {
			b.WriteString(styles.err.Render(msg) + "\n")
		}
		b.WriteString("\n")
	}

	if f.submitting {
		b.WriteString(styles.help.Render("Submitting...") + "\n")
	}
	return b.String()
}
