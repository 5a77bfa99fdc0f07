package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ParseSSHArgs splits a raw --ssh-args value the way a POSIX shell would.
func ParseSSHArgs(rawArgs string) ([]string, error) {
	args, err := shellquote.Split(rawArgs)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ssh arguments %q: %w", rawArgs, err)
	}
	return args, nil
}

var hostRangeRegexp = regexp.MustCompile(`\[(\d+)-(\d+)\]`)

// MaxExpandedHosts bounds the number of hosts a single pattern expands to.
const MaxExpandedHosts = 10000

// ExpandHostRanges expands numeric ranges in a host pattern:
//
//	db[1-3].example.org   -> db1.example.org, db2.example.org, db3.example.org
//	db[08-10].example.org -> db08.example.org, db09.example.org, db10.example.org
//
// Several ranges in one pattern produce the cartesian product.
func ExpandHostRanges(pattern string) ([]string, error) {
	loc := hostRangeRegexp.FindStringSubmatchIndex(pattern)
	if loc == nil {
		return []string{pattern}, nil
	}

	rawStart := pattern[loc[2]:loc[3]]
	rawEnd := pattern[loc[4]:loc[5]]
	start, err := strconv.Atoi(rawStart)
	if err != nil {
		return nil, fmt.Errorf("failed to parse range start %s in %s: %w", rawStart, pattern, err)
	}
	end, err := strconv.Atoi(rawEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to parse range end %s in %s: %w", rawEnd, pattern, err)
	}
	if start > end {
		return nil, fmt.Errorf("invalid range [%s-%s] in %s: start is greater than end", rawStart, rawEnd, pattern)
	}

	width := 0
	if strings.HasPrefix(rawStart, "0") && len(rawStart) > 1 {
		width = len(rawStart)
	}

	if end-start >= MaxExpandedHosts {
		return nil, fmt.Errorf("range [%s-%s] in %s is too large, at most %d hosts allowed", rawStart, rawEnd, pattern, MaxExpandedHosts)
	}

	prefix, suffix := pattern[:loc[0]], pattern[loc[1]:]
	rest, err := ExpandHostRanges(suffix)
	if err != nil {
		return nil, err
	}
	if count := (end - start + 1) * len(rest); count > MaxExpandedHosts {
		return nil, fmt.Errorf("%s expands to %d hosts, at most %d allowed", pattern, count, MaxExpandedHosts)
	}

	expanded := make([]string, 0, (end-start+1)*len(rest))
	for i := start; i <= end; i++ {
		for _, tail := range rest {
			expanded = append(expanded, fmt.Sprintf("%s%0*d%s", prefix, width, i, tail))
		}
	}
	return expanded, nil
}

// CheckExecutable fails unless path is a regular file executable by its owner.
func CheckExecutable(path string) error {
	fileInfo, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file '%s' does not exist", path)
	}
	if err != nil {
		return fmt.Errorf("failed to stat '%s': %w", path, err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("'%s' is a directory", path)
	}

	// 0o100 is the owner execute bit of drwxrwxrwx
	executableByOwner := fs.FileMode(0o100)
	if fileInfo.Mode()&executableByOwner != executableByOwner {
		return fmt.Errorf("file '%s' is not executable by the owner", path)
	}
	return nil
}
