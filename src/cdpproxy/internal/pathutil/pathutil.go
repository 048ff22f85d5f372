// Package pathutil joins paths that may come from either a POSIX or a Windows host.
package pathutil

import (
	"path"
	"strings"
)

// ProperJoin joins path segments. The flavor is picked from the first segment: a Windows-absolute
// first segment (drive letter or UNC share) yields a backslash-separated result, anything else is
// joined with forward slashes. The result is cleaned.
func ProperJoin(segments ...string) string {
	if len(segments) == 0 {
		return ""
	}
	if IsWindowsAbs(segments[0]) {
		return windowsJoin(segments)
	}
	return path.Join(segments...)
}

// IsWindowsAbs reports whether p starts with a drive letter followed by a separator, or is a UNC path.
func IsWindowsAbs(p string) bool {
	if strings.HasPrefix(p, `\\`) {
		return true
	}
	return len(p) >= 3 && isDriveLetter(p[0]) && p[1] == ':' && (p[2] == '\\' || p[2] == '/')
}

// ToSlash converts a Windows path to forward slashes. POSIX paths are returned unchanged.
func ToSlash(p string) string {
	if !IsWindowsAbs(p) {
		return p
	}
	return strings.ReplaceAll(p, `\`, "/")
}

func isDriveLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

func windowsJoin(segments []string) string {
	joined := strings.ReplaceAll(strings.Join(nonEmpty(segments), `\`), "/", `\`)

	var volume string
	rest := joined
	if strings.HasPrefix(joined, `\\`) {
		// \\server\share is the volume of a UNC path.
		parts := strings.SplitN(strings.TrimPrefix(joined, `\\`), `\`, 3)
		if len(parts) < 2 {
			return joined
		}
		volume = `\\` + parts[0] + `\` + parts[1]
		rest = ""
		if len(parts) == 3 {
			rest = parts[2]
		}
	} else {
		volume = joined[:2]
		rest = joined[2:]
	}

	var out []string
	for _, elem := range strings.Split(rest, `\`) {
		switch elem {
		case "", ".":
		case "..":
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, elem)
		}
	}
	return volume + `\` + strings.Join(out, `\`)
}

func nonEmpty(segments []string) []string {
	res := make([]string, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			res = append(res, s)
		}
	}
	return res
}
