package command

import (
	"sort"
	"strings"

	"github.com/spf13/pflag"
)

// Complete suggests the next segment or flag for a partial command line.
// Unknown segments under a group with a capture child are taken as ids.
func (t *Tree) Complete(args []string, toComplete string) []string {
	node := t.root
	for i := 0; i < len(args); i++ {
		tok := args[i]
		if isFlag(tok) {
			if globalFlagSpan(args, i) == 2 {
				i++
			}
			continue
		}
		if node.cmd != nil {
			break
		}
		if child, ok := node.children[tok]; ok {
			node = child
			continue
		}
		if node.param != nil {
			node = node.param
			continue
		}
		return nil
	}

	if strings.HasPrefix(toComplete, "-") {
		fs := globalFlags()
		if node.cmd != nil {
			fs = newFlagSet("complete", node.cmd)
		}
		var out []string
		fs.VisitAll(func(f *pflag.Flag) {
			if name := "--" + f.Name; strings.HasPrefix(name, toComplete) {
				out = append(out, name)
			}
		})
		sort.Strings(out)
		return out
	}

	if node.cmd != nil {
		return nil
	}
	var out []string
	for _, name := range node.childNames() {
		if strings.HasPrefix(name, toComplete) {
			out = append(out, name)
		}
	}
	return out
}
