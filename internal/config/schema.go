package config

// Kind is the declared type of a recognized option.
type Kind int

const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
	KindList
	KindTable
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindTable:
		return "table"
	}
	return "unknown"
}

// Option declares one recognized configuration key with its type and
// default. The defaults form the base layer, so resolution never fails on
// a missing key.
type Option struct {
	Name    string
	Kind    Kind
	Default interface{}
}

// Schema enumerates every recognized option. Keys outside this list are
// retained during merging but flagged as non-validated.
func Schema() []Option {
	return []Option{
		{Name: "general.provider", Kind: KindString, Default: "github"},
		{Name: "general.generator", Kind: KindString, Default: "langchain"},
		{Name: "general.publish_output", Kind: KindBool, Default: true},
		{Name: "general.verbose", Kind: KindBool, Default: false},

		{Name: "review.inline_comments", Kind: KindBool, Default: true},
		{Name: "review.require_tests", Kind: KindBool, Default: true},
		{Name: "review.require_security", Kind: KindBool, Default: true},
		{Name: "review.num_suggestions", Kind: KindInt, Default: 4},
		{Name: "review.extra_instructions", Kind: KindString, Default: ""},

		{Name: "describe.publish_as_comment", Kind: KindBool, Default: false},
		{Name: "describe.keep_original_title", Kind: KindBool, Default: false},

		{Name: "improve.num_suggestions", Kind: KindInt, Default: 4},
		{Name: "improve.extra_instructions", Kind: KindString, Default: ""},

		{Name: "changelog.file", Kind: KindString, Default: "CHANGELOG.md"},
		{Name: "changelog.push", Kind: KindBool, Default: true},

		{Name: "retry.max_attempts", Kind: KindInt, Default: 3},

		{Name: "ignore.glob", Kind: KindList, Default: []string{}},

		// Provider and generator credentials are free-form tables keyed by
		// name (providers.gitlab.url, ai.openai.api_key, ...). Their inner
		// keys are owned by the adapters and not validated here.
		{Name: "providers", Kind: KindTable, Default: map[string]interface{}{}},
		{Name: "ai", Kind: KindTable, Default: map[string]interface{}{}},
	}
}

// schemaIndex maps option names to their declarations for lookup during
// layer validation.
func schemaIndex() map[string]Option {
	idx := make(map[string]Option)
	for _, opt := range Schema() {
		idx[opt.Name] = opt
	}
	return idx
}

// defaults returns the flat dotted-key default map used as the base layer.
func defaults() map[string]interface{} {
	d := make(map[string]interface{})
	for _, opt := range Schema() {
		d[opt.Name] = opt.Default
	}
	return d
}

// tableRoots returns the names of table-kind options. A key beneath a table
// root is recognized (owned by the table) even though it is not itself in
// the schema.
func tableRoots() []string {
	var roots []string
	for _, opt := range Schema() {
		if opt.Kind == KindTable {
			roots = append(roots, opt.Name)
		}
	}
	return roots
}
