package cli

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	flagGroupAnnotation = "fleetops_flag_group"

	ungroupedTitle = "Options"
	// actionTitle replaces ungroupedTitle next to grouped flags, where the
	// ungrouped ones belong to the action itself
	actionTitle = "Action options"
)

// SetFlagGroup files the named flags under a group title in --help. Flags
// without a group are listed first.
func SetFlagGroup(fs *pflag.FlagSet, group string, names ...string) {
	for _, name := range names {
		// names come from the same DefineFlags, a missing one is a typo
		if err := fs.SetAnnotation(name, flagGroupAnnotation, []string{group}); err != nil {
			panic(err)
		}
	}
}

func flagGroup(f *pflag.Flag) string {
	if group, ok := f.Annotations[flagGroupAnnotation]; ok && len(group) > 0 {
		return group[0]
	}
	return ""
}

func commandChain(cmd *cobra.Command) string {
	chain := []string{}
	for cur := cmd; cur != nil && cur != cmd.Root(); cur = cur.Parent() {
		chain = append([]string{cur.Name()}, chain...)
	}
	return strings.Join(chain, " ")
}

func GenerateUsage(cmd *cobra.Command) string {
	usage := color.New(color.Bold).Sprint("Usage:")
	root := cmd.Root().Name()
	if cmd == cmd.Root() {
		return fmt.Sprintf("%s %s [global options...] <subcommand>", usage, root)
	}

	line := fmt.Sprintf("%s %s [global options...] %s [options]", usage, root, commandChain(cmd))
	if cmd.HasAvailableSubCommands() {
		line += " <subcommand>"
	}
	return line
}

// GenerateCommandTree draws cmd and its visible subcommands, the short
// descriptions aligned to column width.
func GenerateCommandTree(cmd *cobra.Command, width int) []string {
	lines := []string{treeLine(cmd, "", width)}
	return append(lines, subtree(cmd, "", width)...)
}

func treeLine(cmd *cobra.Command, indent string, width int) string {
	gap := max(width-utf8.RuneCountInString(indent)-len(cmd.Name()), 1)
	return indent + color.New(color.Bold).Sprint(cmd.Name()) + strings.Repeat(" ", gap) + cmd.Short
}

func subtree(cmd *cobra.Command, prefix string, width int) []string {
	visible := slices.DeleteFunc(slices.Clone(cmd.Commands()), func(c *cobra.Command) bool {
		return !c.IsAvailableCommand()
	})

	lines := []string{}
	for i, sub := range visible {
		branch, stem := "├─ ", "│  "
		if i == len(visible)-1 {
			branch, stem = "└─ ", "   "
		}
		lines = append(lines, treeLine(sub, prefix+branch, width))
		lines = append(lines, subtree(sub, prefix+stem, width)...)
	}
	return lines
}

func GenerateShortGlobalOptions(rootCmd *cobra.Command) []string {
	names := []string{}
	rootCmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		name := color.GreenString("--" + f.Name)
		if f.Shorthand != "" {
			name = fmt.Sprintf("{%s|%s}", color.GreenString("-"+f.Shorthand), name)
		}
		names = append(names, name)
	})

	return []string{
		"Global options:",
		"  " + strings.Join(names, ", "),
		fmt.Sprintf("  To get full description of these options run '%s --help'.", rootCmd.Name()),
	}
}

// ColorizeUsages renders the usages of fs with every flag name in green.
func ColorizeUsages(fs *pflag.FlagSet) string {
	names := []string{}
	fs.VisitAll(func(f *pflag.Flag) {
		names = append(names, "--"+f.Name)
		if f.Shorthand != "" {
			names = append(names, "-"+f.Shorthand)
		}
	})

	// longest first, so --cluster does not eat the prefix of --cluster-wait-timeout
	slices.SortFunc(names, func(a, b string) int { return len(b) - len(a) })

	pairs := make([]string, 0, 2*len(names))
	for _, name := range names {
		pairs = append(pairs, name, color.GreenString(name))
	}
	return strings.NewReplacer(pairs...).Replace(fs.FlagUsages())
}

// GroupedUsages splits the local flags of cmd by group, in the order the
// groups were first defined. Ungrouped flags come first.
func GroupedUsages(cmd *cobra.Command) []string {
	order := []string{}
	sets := map[string]*pflag.FlagSet{}

	cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
		if f.Hidden {
			return
		}
		group := flagGroup(f)
		if _, found := sets[group]; !found {
			sets[group] = pflag.NewFlagSet(group, pflag.ContinueOnError)
			sets[group].SortFlags = false
			order = append(order, group)
		}
		sets[group].AddFlag(f)
	})

	ungrouped := ungroupedTitle
	if len(order) > 1 {
		ungrouped = actionTitle
	}
	slices.SortStableFunc(order, func(a, b string) int {
		switch {
		case a == "" && b != "":
			return -1
		case a != "" && b == "":
			return 1
		}
		return 0
	})

	sections := []string{}
	for _, group := range order {
		title := group
		if title == "" {
			title = ungrouped
		}
		sections = append(sections, fmt.Sprintf("%s:\n%s", title, ColorizeUsages(sets[group])))
	}
	return sections
}

// GenerateCommandOptionsMessage lists the flags of cmd and then those its
// parents contribute, ending with a short summary of the global options.
func GenerateCommandOptionsMessage(cmd *cobra.Command) []string {
	if cmd == cmd.Root() {
		return GenerateShortGlobalOptions(cmd)
	}

	result := GroupedUsages(cmd)
	if cmd.HasParent() {
		result = append(result, GenerateCommandOptionsMessage(cmd.Parent())...)
	}
	return result
}
