// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Id int

const (
	ConfigNotFoundId Id = iota + 1
	ConfigParseErrorId
	ConfigFormatUnsupportedId
	ConfigMergeConflictId
	SchemaValidationFailedId
	TrainerUnknownId
	TrainCommandNotFoundId
	TrainingFailedId
)

type MarkdownMsg string

type HttpLink string

type Renderer interface {
	Render(in string, stylePath string) (string, error)
}

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue page with the glamour style at stylePath
// ("dark", "light", "notty" or a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	configNotFoundIssue = &Issue{
		id: ConfigNotFoundId,
		mdMsg: `
# Configuration file not found!

The base configuration file could not be opened. Runs never fall back to an
empty configuration.

## Things you can try:
- Run from the directory that contains ` + "`examples/fewshot.toml`" + `
- Point to the file explicitly:
~~~
$ trainrun --config path/to/fewshot.toml
~~~

- Or set it in the environment:
~~~
$ export TRAINRUN_CONFIG=path/to/fewshot.toml
~~~`,
	}

	configParseErrorIssue = &Issue{
		id: ConfigParseErrorId,
		mdMsg: `
# Failed to parse the configuration file!

The file exists but its contents are not valid for its format.

## Common issues:
- TOML: unquoted strings, duplicate tables, missing closing brackets
- YAML: inconsistent indentation, tabs used for indentation
- CUE: fields that are not concrete (` + "`batch_size: int`" + `)
- HCL: references to variables or functions

## Things you can try:
- Print what trainrun reads from another copy of the file:
~~~
$ trainrun config show --config other.toml
~~~`,
	}

	configFormatUnsupportedIssue = &Issue{
		id: ConfigFormatUnsupportedId,
		mdMsg: `
# Unsupported configuration format!

The format is chosen by file extension.

## Supported extensions:
- ` + "`.toml`" + `
- ` + "`.yaml`, `.yml`" + `
- ` + "`.json`" + `
- ` + "`.cue`" + `
- ` + "`.hcl`",
	}

	configMergeConflictIssue = &Issue{
		id: ConfigMergeConflictId,
		mdMsg: `
# Override does not fit the configuration!

An override addresses a key below a value that is not a section, or replaces
a whole section with a single value.

## Examples:
- ` + "`training.lr.warmup=10`" + ` when ` + "`training.lr`" + ` is a number
- ` + "`data.kwargs=flat`" + ` when ` + "`data.kwargs`" + ` is a section

## Things you can try:
- Inspect the merged configuration:
~~~
$ trainrun config show
~~~

- Override the leaf keys of a section one by one:
~~~
$ trainrun --set data.kwargs.embed_key=X_hvg
~~~

- Skip the built-in overrides:
~~~
$ trainrun --no-default-overrides
~~~`,
	}

	schemaValidationFailedIssue = &Issue{
		id: SchemaValidationFailedId,
		mdMsg: `
# Configuration does not match the schema!

The merged configuration was checked against a CUE schema and at least one
field is missing or has a value the schema does not allow.

## Things you can try:
- Fix the reported fields with ` + "`--set key=value`" + `
- Check which definition is used (default ` + "`#Config`" + `):
~~~
$ trainrun --schema schema.cue --schema-def '#Config'
~~~`,
	}

	trainerUnknownIssue = &Issue{
		id: TrainerUnknownId,
		mdMsg: `
# Unknown trainer!

## Available trainers:
- ` + "`exec`" + `: run an external training command (default)
- ` + "`dry-run`" + `: print the merged configuration and stop`,
	}

	trainCommandNotFoundIssue = &Issue{
		id: TrainCommandNotFoundId,
		mdMsg: `
# Training command not found!

The executable of the training command is not in your PATH.

## Things you can try:
- Activate the Python environment that provides the training package
- Set the command explicitly:
~~~
$ trainrun --train-cmd "uv run python -m state.tx.train"
~~~

- Inspect the merged configuration without training:
~~~
$ trainrun --trainer dry-run
~~~`,
	}

	trainingFailedIssue = &Issue{
		id: TrainingFailedId,
		mdMsg: `
# Training failed!

The training routine returned an error. trainrun exits with the exit code of
the training process.

## Things you can try:
- Re-run with verbose logging to see the command and configuration file:
~~~
$ trainrun -v
~~~`,
	}

	issues = map[Id]*Issue{
		configNotFoundIssue.Id():          configNotFoundIssue,
		configParseErrorIssue.Id():        configParseErrorIssue,
		configFormatUnsupportedIssue.Id(): configFormatUnsupportedIssue,
		configMergeConflictIssue.Id():     configMergeConflictIssue,
		schemaValidationFailedIssue.Id():  schemaValidationFailedIssue,
		trainerUnknownIssue.Id():          trainerUnknownIssue,
		trainCommandNotFoundIssue.Id():    trainCommandNotFoundIssue,
		trainingFailedIssue.Id():          trainingFailedIssue,
	}
)

func Values() []*Issue {
	return maps.Values(issues)
}

func Get(id Id) *Issue {
	return issues[id]
}
