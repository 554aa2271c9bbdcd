// ABOUTME: Compiles structured search parameters into the Starfish flat query grammar.
// ABOUTME: Pure string construction; malformed expressions are the backend's problem.

package query

import (
	"strconv"
	"strings"
)

// regexMetaChars are the characters that cause a bare name filter to be
// treated as a regular expression rather than a glob or literal. A literal
// filename containing one of these (e.g. "report (1).pdf") will be
// misclassified; callers that need an exact match on such names should use
// iname or an anchored name_regex instead.
const regexMetaChars = "()[]{}|+?"

// Params is the full set of search filters accepted by the starfish_query
// tool. A nil pointer or empty string means the filter was not supplied and
// contributes nothing to the compiled query. Booleans only emit their flag
// when explicitly true.
type Params struct {
	Name           string `json:"name,omitempty"`
	NameRegex      string `json:"name_regex,omitempty"`
	Path           string `json:"path,omitempty"`
	PathRegex      string `json:"path_regex,omitempty"`
	FileType       string `json:"file_type,omitempty"`
	Ext            string `json:"ext,omitempty"`
	Empty          bool   `json:"empty,omitempty"`
	Inode          *int64 `json:"inode,omitempty"`
	UID            *int   `json:"uid,omitempty"`
	GID            *int   `json:"gid,omitempty"`
	Username       string `json:"username,omitempty"`
	UsernameRegex  string `json:"username_regex,omitempty"`
	Groupname      string `json:"groupname,omitempty"`
	GroupnameRegex string `json:"groupname_regex,omitempty"`
	Size           string `json:"size,omitempty"`
	Nlinks         string `json:"nlinks,omitempty"`
	IName          string `json:"iname,omitempty"`
	IUsername      string `json:"iusername,omitempty"`
	IGroupname     string `json:"igroupname,omitempty"`
	Depth          *int   `json:"depth,omitempty"`
	MaxDepth       *int   `json:"maxdepth,omitempty"`
	Perm           string `json:"perm,omitempty"`
	MTime          string `json:"mtime,omitempty"`
	CTime          string `json:"ctime,omitempty"`
	ATime          string `json:"atime,omitempty"`
	SearchAll      bool   `json:"search_all,omitempty"`
	Versions       bool   `json:"versions,omitempty"`
	ChildrenOnly   bool   `json:"children_only,omitempty"`
	RootOnly       bool   `json:"root_only,omitempty"`
	Tag            string `json:"tag,omitempty"`
	TagExplicit    string `json:"tag_explicit,omitempty"`
	Zone           string `json:"zone,omitempty"`
}

// IsZero reports whether no filter was supplied at all.
func (p Params) IsZero() bool {
	return p.Compile() == ""
}

// Compile renders the parameter set as a Starfish query string: space-joined
// key=value and bare-flag tokens in a fixed field order. The same input
// always yields byte-identical output. An empty Params compiles to "".
func (p Params) Compile() string {
	var parts []string

	add := func(key, value string) {
		parts = append(parts, key+"="+value)
	}

	if p.FileType != "" {
		add("type", p.FileType)
	}

	// A name that looks like a regex is promoted to name-re with a ^ anchor;
	// globs and literals pass through as-is.
	if p.Name != "" {
		if looksLikeRegex(p.Name) {
			add("name-re", anchorRegex(p.Name))
		} else {
			add("name", p.Name)
		}
	}
	if p.NameRegex != "" {
		add("name-re", anchorRegex(p.NameRegex))
	}
	if p.Path != "" {
		add("ppath", p.Path)
	}
	if p.PathRegex != "" {
		add("ppath-re", anchorRegex(p.PathRegex))
	}

	if p.Ext != "" {
		add("ext", p.Ext)
	}
	if p.Empty {
		parts = append(parts, "empty")
	}
	if p.Inode != nil {
		add("inode", strconv.FormatInt(*p.Inode, 10))
	}

	// uid/gid key on presence, not truthiness: uid=0 is root and must emit.
	if p.UID != nil {
		add("uid", strconv.Itoa(*p.UID))
	}
	if p.GID != nil {
		add("gid", strconv.Itoa(*p.GID))
	}
	if p.Username != "" {
		add("username", p.Username)
	}
	if p.UsernameRegex != "" {
		add("username-re", anchorRegex(p.UsernameRegex))
	}
	if p.Groupname != "" {
		add("groupname", p.Groupname)
	}
	if p.GroupnameRegex != "" {
		add("groupname-re", anchorRegex(p.GroupnameRegex))
	}

	// Comparison expressions (">1GB", "100-200", "gte:5") pass through
	// unparsed; the backend validates them.
	if p.Size != "" {
		add("size", p.Size)
	}
	if p.Nlinks != "" {
		add("nlinks", p.Nlinks)
	}

	if p.IName != "" {
		add("iname", p.IName)
	}
	if p.IUsername != "" {
		add("iusername", p.IUsername)
	}
	if p.IGroupname != "" {
		add("igroupname", p.IGroupname)
	}

	if p.Depth != nil {
		add("depth", strconv.Itoa(*p.Depth))
	}
	if p.MaxDepth != nil {
		add("maxdepth", strconv.Itoa(*p.MaxDepth))
	}

	if p.Perm != "" {
		add("perm", p.Perm)
	}

	if p.MTime != "" {
		add("mtime", p.MTime)
	}
	if p.CTime != "" {
		add("ctime", p.CTime)
	}
	if p.ATime != "" {
		add("atime", p.ATime)
	}

	if p.SearchAll {
		parts = append(parts, "search-all")
	}
	if p.Versions {
		parts = append(parts, "versions")
	}
	if p.ChildrenOnly {
		parts = append(parts, "children-only")
	}
	if p.RootOnly {
		parts = append(parts, "root-only")
	}

	// Multi-word tag values stay a single token with an embedded space; the
	// backend treats the inner spaces as AND between tags.
	if p.Tag != "" {
		add("tag", p.Tag)
	}
	if p.TagExplicit != "" {
		add("tag-explicit", p.TagExplicit)
	}

	if p.Zone != "" {
		add("zone", p.Zone)
	}

	return strings.Join(parts, " ")
}

// looksLikeRegex reports whether a name filter should be compiled as a
// regular expression. A * glob falls through to plain name matching, but ?
// counts as a regex metacharacter and wins over its glob reading.
func looksLikeRegex(name string) bool {
	if strings.HasPrefix(name, "^") {
		return true
	}
	return strings.ContainsAny(name, regexMetaChars)
}

// anchorRegex ensures a pattern is anchored at the start, leaving patterns
// that already start with ^ untouched.
func anchorRegex(pattern string) string {
	if strings.HasPrefix(pattern, "^") {
		return pattern
	}
	return "^" + pattern
}
