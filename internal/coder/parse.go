package coder

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrNoFilePath means the response named no target file.
	ErrNoFilePath = errors.New("no FILE marker in fix response")
	// ErrNoCodeBlocks means OLD_CODE or NEW_CODE was missing.
	ErrNoCodeBlocks = errors.New("missing OLD_CODE/NEW_CODE block in fix response")
	// ErrNoResponse means the coder model could not be reached.
	ErrNoResponse = errors.New("no response from coder model")
)

// Proposal is a parsed fix.
type Proposal struct {
	File          string `json:"file"`
	OldCode       string `json:"old_code"`
	NewCode       string `json:"new_code"`
	Explanation   string `json:"explanation,omitempty"`
	RequestedFile string `json:"requested_file,omitempty"`
	Raw           string `json:"-"`
}

var (
	// FILE must not match inside NEED_FILE.
	fileRe        = regexp.MustCompile("(?m)(?:^|[^A-Za-z_])FILE:[*`'\" \t]*([^\\s`'\"*]+)")
	needFileRe    = regexp.MustCompile("NEED_FILE:[*`'\" \t]*([^\\s`'\"*]+)")
	oldCodeRe     = regexp.MustCompile("OLD_CODE:\\**\\s*```[\\w+-]*[ \\t]*\\r?\\n([\\s\\S]*?)```")
	newCodeRe     = regexp.MustCompile("NEW_CODE:\\**\\s*```[\\w+-]*[ \\t]*\\r?\\n([\\s\\S]*?)```")
	explanationRe = regexp.MustCompile(`EXPLANATION:\**\s*([\s\S]*)`)
)

// NeededFile returns the path of a NEED_FILE request, if any.
func NeededFile(raw string) (string, bool) {
	m := needFileRe.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ParseResponse extracts the file/old/new triple from a fix response. The
// returned Proposal is non-nil even on error so callers can keep the raw text.
func ParseResponse(raw string) (*Proposal, error) {
	p := &Proposal{Raw: raw}

	m := fileRe.FindStringSubmatch(raw)
	if m == nil {
		return p, ErrNoFilePath
	}
	p.File = m[1]

	oldM := oldCodeRe.FindStringSubmatch(raw)
	newM := newCodeRe.FindStringSubmatch(raw)
	if oldM == nil || newM == nil {
		return p, ErrNoCodeBlocks
	}
	p.OldCode = strings.TrimSpace(oldM[1])
	p.NewCode = strings.TrimSpace(newM[1])

	if e := explanationRe.FindStringSubmatch(raw); e != nil {
		p.Explanation = strings.TrimSpace(e[1])
	}
	return p, nil
}
