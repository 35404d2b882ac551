package command

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

type helpEntry struct {
	Name  string
	Short string
}

type helpData struct {
	Short    string
	Path     string
	Usage    []string
	Commands []helpEntry
	Pad      int
	Flags    string
	Globals  string
	Example  string
}

var helpTemplate = template.Must(template.New("help").Funcs(template.FuncMap{
	"rpad": func(s string, n int) string { return fmt.Sprintf("%-*s", n, s) },
}).Parse(`{{with .Short}}{{.}}

{{end}}Usage:{{range .Usage}}
  {{.}}{{end}}{{if .Commands}}

Available Commands:{{range .Commands}}
  {{rpad .Name $.Pad}}  {{.Short}}{{end}}{{end}}{{if .Flags}}

Flags:
{{.Flags}}{{end}}{{if .Globals}}

Global Flags:
{{.Globals}}{{end}}{{if .Example}}

Examples:
{{.Example}}{{end}}{{if .Commands}}

Use "{{.Path}} <command> --help" for more information about a command.{{end}}
`))

func renderHelp(data helpData) string {
	for _, c := range data.Commands {
		if len(c.Name) > data.Pad {
			data.Pad = len(c.Name)
		}
	}
	var buf bytes.Buffer
	if err := helpTemplate.Execute(&buf, data); err != nil {
		return fmt.Sprintf("%s: help unavailable: %v\n", data.Path, err)
	}
	return buf.String()
}

// groupHelp lists the children of a group.
func (t *Tree) groupHelp(n *Node) string {
	path := t.displayPath(n)
	data := helpData{
		Short:   n.short,
		Path:    path,
		Usage:   []string{path + " <command>"},
		Globals: trimUsages(globalFlags().FlagUsages()),
	}

	for _, name := range n.childNames() {
		data.Commands = append(data.Commands, helpEntry{Name: name, Short: n.children[name].short})
	}
	if n.param != nil {
		data.Usage = append(data.Usage, fmt.Sprintf("%s <%s> <command>", path, n.param.name))
		for _, name := range n.param.childNames() {
			data.Commands = append(data.Commands, helpEntry{
				Name:  fmt.Sprintf("<%s> %s", n.param.name, name),
				Short: n.param.children[name].short,
			})
		}
	}
	return renderHelp(data)
}

// leafHelp describes a command's arguments and flags.
func (t *Tree) leafHelp(n *Node) string {
	cmd := n.cmd
	usage := t.displayPath(n)
	for _, a := range cmd.Args {
		if a.Optional {
			usage += " [" + a.Name + "]"
		} else {
			usage += " <" + a.Name + ">"
		}
	}
	usage += " [flags]"

	short := cmd.Short
	if cmd.Long != "" {
		short = cmd.Long
	}

	flags := trimUsages(localFlags(cmd).FlagUsages())
	if len(cmd.Args) > 0 {
		var b strings.Builder
		for _, a := range cmd.Args {
			fmt.Fprintf(&b, "      %-20s %s\n", "<"+a.Name+">", a.Help)
		}
		if flags != "" {
			flags = strings.TrimRight(b.String(), "\n") + "\n" + flags
		} else {
			flags = strings.TrimRight(b.String(), "\n")
		}
	}

	return renderHelp(helpData{
		Short:   short,
		Path:    t.displayPath(n),
		Usage:   []string{usage},
		Flags:   flags,
		Globals: trimUsages(globalFlags().FlagUsages()),
		Example: strings.TrimRight(cmd.Example, "\n"),
	})
}

func trimUsages(s string) string {
	return strings.TrimRight(s, " \n")
}

// Help returns the help text for the node reached by path segments.
// Capture segments may be given as any id.
func (t *Tree) Help(path []string) (string, error) {
	inv, err := t.Resolve(append(append([]string{}, path...), "--help"))
	if err != nil {
		return "", err
	}
	return inv.Help, nil
}
