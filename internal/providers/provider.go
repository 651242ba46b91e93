package providers

import (
	"strings"
)

// DetectFromURL guesses the provider type from the shape of a PR/MR URL.
// Returns an empty string when the URL matches no known provider, in which
// case the configured default applies.
func DetectFromURL(url string) string {
	if IsGitHubPRURL(url) {
		return "github"
	}
	if IsGitLabMRURL(url) {
		return "gitlab"
	}
	return ""
}

// IsGitHubPRURL reports whether url points at a GitHub pull request.
func IsGitHubPRURL(url string) bool {
	return strings.HasPrefix(url, "https://github.com/") && strings.Contains(url, "/pull/")
}

// IsGitLabMRURL reports whether url points at a GitLab merge request,
// including self-hosted instances with the /-/ path delimiter.
func IsGitLabMRURL(url string) bool {
	return strings.Contains(url, "/merge_requests/")
}
