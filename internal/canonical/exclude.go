package canonical

import (
	"path"
	"strings"
)

// skipSuffixes are file extensions that never lead to a content page.
var skipSuffixes = map[string]bool{
	// images
	".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
	".webp": true, ".ico": true, ".bmp": true, ".tif": true, ".tiff": true, ".avif": true,
	// media
	".mp3": true, ".mp4": true, ".avi": true, ".mov": true, ".wmv": true,
	".webm": true, ".ogg": true, ".wav": true, ".flac": true, ".m4a": true,
	// archives and binaries
	".zip": true, ".rar": true, ".7z": true, ".tar": true, ".gz": true, ".tgz": true,
	".bz2": true, ".exe": true, ".dmg": true, ".msi": true, ".apk": true, ".iso": true, ".bin": true,
	// documents
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".csv": true,
	// assets
	".css": true, ".js": true, ".mjs": true, ".map": true, ".json": true,
	".woff": true, ".woff2": true, ".ttf": true, ".otf": true, ".eot": true,
}

// skipPaths are path prefixes of administrative or transactional pages.
var skipPaths = []string{
	"/admin",
	"/administrator",
	"/wp-admin",
	"/wp-login.php",
	"/wp-json",
	"/xmlrpc.php",
	"/login",
	"/logout",
	"/signin",
	"/sign-in",
	"/signout",
	"/sign-out",
	"/signup",
	"/sign-up",
	"/register",
	"/cart",
	"/checkout",
	"/my-account",
	"/account",
	"/user/login",
	"/cdn-cgi",
	"/feed",
}

// Excluded reports whether u is on the deny-list of non-content resources.
func (u URL) Excluded() bool {
	p := strings.ToLower(u.Path())
	if p == "" {
		return false
	}

	if skipSuffixes[path.Ext(p)] {
		return true
	}

	for _, prefix := range skipPaths {
		if p == prefix || strings.HasPrefix(p, prefix+"/") {
			return true
		}
	}
	return false
}
