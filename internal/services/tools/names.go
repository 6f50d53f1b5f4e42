package tools

import (
	"errors"
	"fmt"
)

// Name is the closed set of tools the assistant may call.
type Name string

const (
	SearchCFRTitle21      Name = "Search_CFR_Title_21"
	SearchFDAGuidanceDocs Name = "Search_FDA_Guidance_Docs"
)

var (
	ErrUnknownTool     = errors.New("unknown tool")
	ErrToolUnavailable = errors.New("tool not configured")
)

// Names lists every supported tool.
func Names() []Name {
	return []Name{SearchFDAGuidanceDocs, SearchCFRTitle21}
}

// ParseName maps a function name from a tool call onto a Name.
func ParseName(s string) (Name, error) {
	switch Name(s) {
	case SearchCFRTitle21, SearchFDAGuidanceDocs:
		return Name(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownTool, s)
	}
}

func (n Name) String() string {
	return string(n)
}
