package cli

// UsageTemplate renders the usage line, the subcommand tree and the flags
// of the command grouped as GenerateCommandOptionsMessage lists them.
const UsageTemplate = `{{ generateUsage . }}{{if .HasExample}}

Examples:
{{.Example}}{{end}}

{{ drawNiceTree . }}
{{ listAllFlagsInNiceGroups . }}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} <subcommand> --help" for more information about a subcommand.{{end}}
`
