package engine

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/uber/cordova-cdp-proxy/src/cdpproxy/internal/pathutil"
	"go.lsp.dev/uri"
)

const _fileScheme = "file://"

// PlatformConfig describes where a platform serves the app's www folder from.
type PlatformConfig struct {
	// RemoteRoots are tried in order against script URLs. Each must match at the start of the URL.
	RemoteRoots []string `yaml:"remoteRoots"`
	// CanonicalRemoteRoot is used when a local path is turned back into a remote URL.
	CanonicalRemoteRoot string `yaml:"canonicalRemoteRoot"`
	// LocalRoot is the folder, relative to the project root, that the remote roots correspond to.
	LocalRoot string `yaml:"localRoot"`
}

// PathTransform converts between the runtime's script URLs and files in the project.
type PathTransform interface {
	// ToLocal maps a remote script URL to a local path. ok is false when the URL is not served from the project.
	ToLocal(remoteURL string) (localPath string, ok bool)
	// ToRemote maps a local path under the project's local root to its canonical remote URL.
	ToRemote(localPath string) (remoteURL string, ok bool)
}

type pathTransform struct {
	roots     []*regexp.Regexp
	canonical string
	localBase string
}

// NewPathTransform builds the transform for a project rooted at projectRoot.
func NewPathTransform(projectRoot string, cfg PlatformConfig) (PathTransform, error) {
	if projectRoot == "" {
		return nil, fmt.Errorf("project root is required")
	}
	if cfg.CanonicalRemoteRoot == "" {
		return nil, fmt.Errorf("canonicalRemoteRoot is required")
	}
	if !strings.HasSuffix(cfg.CanonicalRemoteRoot, "/") {
		return nil, fmt.Errorf("canonicalRemoteRoot %q must end with a slash", cfg.CanonicalRemoteRoot)
	}

	t := &pathTransform{
		canonical: cfg.CanonicalRemoteRoot,
		localBase: pathutil.ProperJoin(projectRoot, cfg.LocalRoot),
	}
	for _, root := range cfg.RemoteRoots {
		re, err := regexp.Compile(root)
		if err != nil {
			return nil, fmt.Errorf("invalid remote root %q: %w", root, err)
		}
		t.roots = append(t.roots, re)
	}
	return t, nil
}

func (t *pathTransform) ToLocal(remoteURL string) (string, bool) {
	u := stripQueryAndFragment(remoteURL)

	rel, ok := strings.CutPrefix(u, t.canonical)
	if !ok {
		for _, re := range t.roots {
			loc := re.FindStringIndex(u)
			if loc != nil && loc[0] == 0 {
				rel, ok = u[loc[1]:], true
				break
			}
		}
	}
	if !ok || rel == "" {
		return "", false
	}

	decoded, err := url.PathUnescape(rel)
	if err != nil {
		return "", false
	}
	local := pathutil.ProperJoin(t.localBase, decoded)
	if !t.underBase(local) {
		return "", false
	}
	return local, true
}

func (t *pathTransform) ToRemote(localPath string) (string, bool) {
	if !t.underBase(localPath) {
		return "", false
	}
	// underBase compared case-insensitively for Windows paths, so cut by length.
	rel := pathutil.ToSlash(localPath)[len(pathutil.ToSlash(t.localBase))+1:]
	segments := strings.Split(rel, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return t.canonical + strings.Join(segments, "/"), true
}

func (t *pathTransform) underBase(p string) bool {
	base := pathKey(pathutil.ToSlash(t.localBase))
	return strings.HasPrefix(pathKey(pathutil.ToSlash(p)), base+"/")
}

func stripQueryAndFragment(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		return u[:i]
	}
	return u
}

// pathKey normalizes a local path for comparisons. Windows paths compare case-insensitively.
func pathKey(p string) string {
	if pathutil.IsWindowsAbs(p) {
		return strings.ToLower(pathutil.ToSlash(p))
	}
	return p
}

// SamePath reports whether two local paths name the same file.
func SamePath(a, b string) bool {
	return pathKey(a) == pathKey(b)
}

// LocalPathFromURL returns the local path named by a file:// URL or an absolute path.
func LocalPathFromURL(s string) (string, bool) {
	if strings.HasPrefix(s, _fileScheme) {
		u, err := uri.Parse(s)
		if err != nil {
			return "", false
		}
		name := u.Filename()
		if pathutil.IsWindowsAbs(name) {
			return strings.ReplaceAll(name, "/", `\`), true
		}
		return name, true
	}
	if strings.HasPrefix(s, "/") || pathutil.IsWindowsAbs(s) {
		return s, true
	}
	return "", false
}

// LocalURL returns the file:// URL for a local path.
func LocalURL(localPath string) string {
	return string(uri.File(pathutil.ToSlash(localPath)))
}
