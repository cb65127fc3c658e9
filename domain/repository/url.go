package repository

import (
	"net/url"
	"path"
	"path/filepath"
	"strings"
)

// URLType is the transport a repository URL was classified as.
type URLType string

// URLType values.
const (
	URLTypeHTTPS   URLType = "HTTPS"
	URLTypeHTTP    URLType = "HTTP"
	URLTypeSSH     URLType = "SSH"
	URLTypeUnknown URLType = "Unknown"
)

// IsValid reports whether the type is one of the known transports.
func (t URLType) IsValid() bool {
	return t == URLTypeHTTPS || t == URLTypeHTTP || t == URLTypeSSH
}

const redactedPassword = "xxxxx"

// Locator is a classified repository URL.
type Locator struct {
	url         string
	cloneURL    string
	redacted    string
	originalURL string
	username    string
	password    string
	authUser    string
	authPass    string
	urlType     URLType
	projectName string
}

// Parse classifies raw and derives its project name and canonical URL.
// Explicit credentials replace any embedded in an HTTP(S) URL, but only
// when both are given. Malformed input yields an invalid Locator of type
// Unknown instead of an error.
func Parse(raw, username, password string) Locator {
	s := strings.TrimSpace(raw)

	var loc Locator
	switch {
	case strings.HasPrefix(s, "https"):
		loc = parseHTTP(s, "https", URLTypeHTTPS, username, password)
	case strings.HasPrefix(s, "http"):
		loc = parseHTTP(s, "http", URLTypeHTTP, username, password)
	default:
		loc = parseSSH(s, username, password)
	}
	loc.originalURL = raw
	return loc
}

func invalid(username, password string) Locator {
	return Locator{urlType: URLTypeUnknown, username: username, password: password}
}

func parseHTTP(s, scheme string, kind URLType, username, password string) Locator {
	rest, ok := strings.CutPrefix(s, scheme+"://")
	if !ok {
		return invalid(username, password)
	}

	var embeddedUser, embeddedPass string
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		embeddedUser, embeddedPass, _ = strings.Cut(rest[:at], ":")
		embeddedUser = unescape(embeddedUser)
		embeddedPass = unescape(embeddedPass)
		rest = rest[at+1:]
	}

	authority, repoPath, _ := strings.Cut(rest, "/")
	host, tld, found := strings.Cut(authority, ".")
	if !found || host == "" || tld == "" {
		return invalid(username, password)
	}

	repoPath = strings.TrimRight(repoPath, "/")
	name := projectNameFrom(repoPath)
	if name == "" {
		return invalid(username, password)
	}
	if !strings.HasSuffix(repoPath, ".git") {
		repoPath += ".git"
	}

	loc := Locator{
		urlType:     kind,
		projectName: name,
		username:    firstNonEmpty(username, embeddedUser),
		password:    firstNonEmpty(password, embeddedPass),
	}

	switch {
	case username != "" && password != "":
		loc.authUser, loc.authPass = username, password
	case username == "" && password == "" && embeddedUser != "" && embeddedPass != "":
		loc.authUser, loc.authPass = embeddedUser, embeddedPass
	}

	base := authority + "/" + repoPath
	loc.cloneURL = scheme + "://" + base
	loc.url = loc.cloneURL
	loc.redacted = loc.cloneURL
	if loc.authUser != "" {
		loc.url = scheme + "://" + url.UserPassword(loc.authUser, loc.authPass).String() + "@" + base
		loc.redacted = scheme + "://" + url.UserPassword(loc.authUser, redactedPassword).String() + "@" + base
	}
	return loc
}

func parseSSH(s, username, password string) Locator {
	user, rest, found := strings.Cut(s, "@")
	if !found || user == "" || strings.ContainsAny(user, "/:") {
		return invalid(username, password)
	}
	host, repoPath, found := strings.Cut(rest, ":")
	if !found || host == "" || strings.Contains(host, "/") {
		return invalid(username, password)
	}
	name := projectNameFrom(strings.TrimRight(repoPath, "/"))
	if name == "" {
		return invalid(username, password)
	}

	return Locator{
		url:         s,
		cloneURL:    s,
		redacted:    s,
		urlType:     URLTypeSSH,
		projectName: name,
		username:    username,
		password:    password,
	}
}

// projectNameFrom returns the last path segment without its extension,
// or "" when that would not name a directory inside the repository root.
func projectNameFrom(p string) string {
	if p == "" {
		return ""
	}
	name := strings.TrimSuffix(path.Base(p), path.Ext(path.Base(p)))
	if !ValidProjectName(name) {
		return ""
	}
	return name
}

// ValidProjectName reports whether name can name a directory or file
// directly inside a storage root.
func ValidProjectName(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".") && !strings.ContainsAny(name, `/\`)
}

func unescape(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		return decoded
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// URL returns the canonical URL, including credentials when both are known.
func (l Locator) URL() string { return l.url }

// CloneURL returns the canonical URL without any credentials.
func (l Locator) CloneURL() string { return l.cloneURL }

// Redacted returns the canonical URL with the password masked.
func (l Locator) Redacted() string { return l.redacted }

// OriginalURL returns the URL exactly as supplied.
func (l Locator) OriginalURL() string { return l.originalURL }

// Username returns the explicit username, or the one embedded in the URL.
func (l Locator) Username() string { return l.username }

// Password returns the explicit password, or the one embedded in the URL.
func (l Locator) Password() string { return l.password }

// Credentials returns the pair embedded in the canonical URL.
func (l Locator) Credentials() (username, password string, ok bool) {
	return l.authUser, l.authPass, l.authUser != ""
}

// Type returns the classified transport.
func (l Locator) Type() URLType { return l.urlType }

// ProjectName returns the short identifier derived from the URL.
func (l Locator) ProjectName() string { return l.projectName }

// Invalid reports whether the URL could not be classified.
func (l Locator) Invalid() bool { return !l.urlType.IsValid() }

// Location returns the working copy path under root, or "" when invalid.
func (l Locator) Location(root string) string {
	if l.Invalid() {
		return ""
	}
	return filepath.Join(root, l.projectName)
}
