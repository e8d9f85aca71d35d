package indexer

import (
	"path/filepath"
	"regexp"
	"strings"
)

// sensitivePathPatterns are deny-only filename fragments that mark a file as
// off-limits regardless of content.
var sensitivePathPatterns = []string{
	".env",
	"id_rsa",
	"id_ed25519",
	".pem",
	".pfx",
	".p12",
	"credentials.json",
	".aws/credentials",
	".netrc",
	"service-account",
}

// isSensitivePath reports whether path matches a known sensitive-file
// pattern. Match → Skipped with reason "sensitive".
func isSensitivePath(path string) bool {
	lower := strings.ToLower(filepath.ToSlash(path))
	for _, pattern := range sensitivePathPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// secretPatterns are high-confidence regexes for common secret formats.
// Deny-only: a match skips the file with reason "secrets"; no pattern here
// blocks a source file that merely discusses these formats in a comment
// without an actual matching token (best-effort, not exhaustive).
var secretPatterns = []*regexp.Regexp{
	regexp.MustCompile(`AKIA[0-9A-Z]{16}`),                                              // AWS access key id
	regexp.MustCompile(`-----BEGIN (RSA |EC |OPENSSH )?PRIVATE KEY-----`),               // private key header
	regexp.MustCompile(`eyJ[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}\.[A-Za-z0-9_-]{10,}`), // JWT
	regexp.MustCompile(`ghp_[A-Za-z0-9]{36}`),                                           // GitHub PAT
	regexp.MustCompile(`sk-[A-Za-z0-9]{20,}`),                                           // OpenAI-style secret key
}

// containsSecret scans content for a high-confidence secret pattern match.
func containsSecret(content []byte) bool {
	for _, re := range secretPatterns {
		if re.Match(content) {
			return true
		}
	}
	return false
}
