package models

// ChangeKind describes how a file changed in a pull request.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeModified ChangeKind = "modified"
	ChangeDeleted  ChangeKind = "deleted"
	ChangeRenamed  ChangeKind = "renamed"
)

// LineKind describes a single line inside a diff hunk.
type LineKind string

const (
	LineContext LineKind = "context"
	LineAdded   LineKind = "added"
	LineRemoved LineKind = "removed"
)

// Line represents a single line in a diff hunk. OldLine/NewLine are zero
// when the line has no number on that side (added lines have no old number,
// removed lines have no new number).
type Line struct {
	Kind    LineKind `json:"kind"`
	Content string   `json:"content"`
	OldLine int      `json:"old_line"`
	NewLine int      `json:"new_line"`
}

// Hunk represents a contiguous block of changes in a unified diff.
type Hunk struct {
	OldStart int    `json:"old_start"`
	OldLines int    `json:"old_lines"`
	NewStart int    `json:"new_start"`
	NewLines int    `json:"new_lines"`
	Header   string `json:"header,omitempty"`
	Lines    []Line `json:"lines"`
}

// FilePatch represents the parsed diff for a single file.
type FilePatch struct {
	Path    string     `json:"path"`
	OldPath string     `json:"old_path,omitempty"` // set when renamed
	Kind    ChangeKind `json:"kind"`
	Hunks   []Hunk     `json:"hunks"`
}

// DiffRefs carries the commit SHAs that anchor a diff version. GitLab
// position objects need all three; GitHub only uses the head SHA.
type DiffRefs struct {
	BaseSHA  string `json:"base_sha"`
	HeadSHA  string `json:"head_sha"`
	StartSHA string `json:"start_sha,omitempty"`
}

// PullRequestContext contains everything fetched for one review invocation.
// It is read-only after fetch; nothing is cached across invocations.
type PullRequestContext struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Description  string      `json:"description"`
	SourceBranch string      `json:"source_branch"`
	TargetBranch string      `json:"target_branch"`
	Author       string      `json:"author"`
	URL          string      `json:"url"`
	DiffRefs     DiffRefs    `json:"diff_refs"`
	Files        []FilePatch `json:"files"`
}

// Suggestion is an AI-produced recommendation referencing a file and a
// line range in new-file numbering. It is untrusted input: the diff mapper
// validates it against the fetched patches before anything is published.
type Suggestion struct {
	FilePath    string `json:"file_path"`
	StartLine   int    `json:"start_line"`
	EndLine     int    `json:"end_line"`
	Replacement string `json:"replacement,omitempty"`
	Rationale   string `json:"rationale"`
	Category    string `json:"category,omitempty"`
}

// CommentSide identifies which side of the diff an anchor refers to.
type CommentSide string

const (
	SideOld CommentSide = "old"
	SideNew CommentSide = "new"
)

// Anchor is the provider-agnostic placement of an inline comment. Concrete
// adapters translate it into their own addressing scheme (GitLab position
// objects, GitHub side/line pairs).
type Anchor struct {
	FilePath  string      `json:"file_path"`
	OldPath   string      `json:"old_path,omitempty"`
	Side      CommentSide `json:"side"`
	Line      int         `json:"line"`                 // new-file line for SideNew, old-file line for SideOld
	StartLine int         `json:"start_line,omitempty"` // set only for range anchors
	OldLine   int         `json:"old_line,omitempty"`   // old-side number for context lines
	DiffRefs  DiffRefs    `json:"diff_refs"`
}

// ProviderComment is a fully resolved inline comment ready for publishing.
type ProviderComment struct {
	Anchor Anchor `json:"anchor"`
	Body   string `json:"body"`
}

// Feedback is what the external generator returns for one invocation: a
// free-form summary plus zero or more suggestions. Title/Description are
// filled for describe runs, Entry for changelog runs.
type Feedback struct {
	Summary     string       `json:"summary"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Entry       string       `json:"entry,omitempty"`
}
