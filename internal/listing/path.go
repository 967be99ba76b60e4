package listing

import "strings"

// Resolve joins href onto currentPath and canonicalizes the result.
// currentPath carries no trailing slash except the literal root "/"; href is
// absolute when it starts with "/", otherwise relative to currentPath. The
// result always starts with "/", contains no doubled slash, and ends with
// "/" only at the root. Parser-emitted paths and request paths both go
// through this function so lookups always agree with listings.
func Resolve(currentPath, href string) string {
	var joined string
	switch {
	case strings.HasPrefix(href, "/"):
		joined = href
	case currentPath == "" || currentPath == "/":
		joined = "/" + href
	default:
		joined = currentPath + "/" + href
	}
	return canonical(joined)
}

func canonical(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}
