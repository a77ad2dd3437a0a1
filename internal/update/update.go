// Package update checks for newer insightview releases.
package update

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	cacheFileName    = "update_check.json"
	cacheDuration    = 6 * time.Hour
	devCacheDuration = 30 * time.Minute
)

// releaseURL is the endpoint returning the latest release.
// Tests point it at a local server.
var releaseURL = "https://api.github.com/repos/wesm/insightview/releases/latest"

// Release is the subset of a GitHub release the check reads.
type Release struct {
	TagName     string `json:"tag_name"`
	HTMLURL     string `json:"html_url"`
	Body        string `json:"body"`
	PublishedAt string `json:"published_at"`
}

// UpdateInfo describes an available release.
type UpdateInfo struct {
	CurrentVersion string
	LatestVersion  string
	ReleaseURL     string
	Notes          string
	IsDevBuild     bool
	// FromCache is set when the info came from the check cache
	// and carries only the version.
	FromCache bool
}

type cachedCheck struct {
	CheckedAt  time.Time `json:"checked_at"`
	Version    string    `json:"version"`
	ReleaseURL string    `json:"release_url,omitempty"`
}

// CheckForUpdate reports a release newer than currentVersion, or
// nil when up to date. Results are cached in cacheDir so repeated
// checks do not hit the API; forceCheck bypasses the cache. Dev
// builds always report the latest release.
func CheckForUpdate(
	ctx context.Context,
	currentVersion string,
	forceCheck bool,
	cacheDir string,
) (*UpdateInfo, error) {
	cleanVersion := strings.TrimPrefix(currentVersion, "v")
	isDevBuild := IsDevBuildVersion(cleanVersion)

	if !forceCheck {
		if info, done := checkCache(
			currentVersion, cleanVersion, isDevBuild, cacheDir,
		); done {
			return info, nil
		}
	}

	release, err := fetchLatestRelease(ctx)
	if err != nil {
		return nil, fmt.Errorf("check for updates: %w", err)
	}
	saveCache(release.TagName, release.HTMLURL, cacheDir)

	latestVersion := strings.TrimPrefix(release.TagName, "v")
	if !isDevBuild && !isNewer(latestVersion, cleanVersion) {
		return nil, nil
	}
	return &UpdateInfo{
		CurrentVersion: currentVersion,
		LatestVersion:  release.TagName,
		ReleaseURL:     release.HTMLURL,
		Notes:          release.Body,
		IsDevBuild:     isDevBuild,
	}, nil
}

func fetchLatestRelease(ctx context.Context) (*Release, error) {
	req, err := http.NewRequestWithContext(
		ctx, "GET", releaseURL, nil,
	)
	if err != nil {
		return nil, err
	}
	req.Header.Set(
		"Accept", "application/vnd.github.v3+json",
	)
	req.Header.Set("User-Agent", "insightview-update")

	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf(
			"GitHub API returned %s", resp.Status,
		)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, err
	}
	if release.TagName == "" {
		return nil, fmt.Errorf("release has no tag")
	}
	return &release, nil
}

func loadCache(cacheDir string) (*cachedCheck, error) {
	cachePath := filepath.Join(cacheDir, cacheFileName)
	data, err := os.ReadFile(cachePath)
	if err != nil {
		return nil, err
	}
	var cached cachedCheck
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, err
	}
	return &cached, nil
}

// checkCache answers from the cache when it is fresh. done is
// false when the caller must query the API.
func checkCache(
	currentVersion, cleanVersion string,
	isDevBuild bool,
	cacheDir string,
) (info *UpdateInfo, done bool) {
	cached, err := loadCache(cacheDir)
	if err != nil {
		return nil, false
	}

	cacheWindow := cacheDuration
	if isDevBuild {
		cacheWindow = devCacheDuration
	}
	if time.Since(cached.CheckedAt) >= cacheWindow {
		return nil, false
	}

	latestVersion := strings.TrimPrefix(cached.Version, "v")
	if !isDevBuild && !isNewer(latestVersion, cleanVersion) {
		return nil, true
	}
	return &UpdateInfo{
		CurrentVersion: currentVersion,
		LatestVersion:  cached.Version,
		ReleaseURL:     cached.ReleaseURL,
		IsDevBuild:     isDevBuild,
		FromCache:      true,
	}, true
}

func saveCache(version, url, cacheDir string) {
	cached := cachedCheck{
		CheckedAt:  time.Now(),
		Version:    version,
		ReleaseURL: url,
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return
	}
	cachePath := filepath.Join(cacheDir, cacheFileName)
	_ = os.MkdirAll(filepath.Dir(cachePath), 0o755)
	_ = os.WriteFile(cachePath, data, 0o600)
}

func extractBaseSemver(v string) string {
	v = strings.TrimPrefix(v, "v")
	if len(v) == 0 || v[0] < '0' || v[0] > '9' {
		return ""
	}
	if !strings.Contains(v, ".") {
		return ""
	}
	if idx := strings.Index(v, "-"); idx > 0 {
		v = v[:idx]
	}
	return v
}

var gitDescribePattern = regexp.MustCompile(
	`-\d+-g[0-9a-f]+(-dirty)?$`,
)

// IsDevBuildVersion returns true if the version is a dev build:
// not a release version, or a git describe of one.
func IsDevBuildVersion(v string) bool {
	v = strings.TrimPrefix(v, "v")
	if extractBaseSemver(v) == "" {
		return true
	}
	return gitDescribePattern.MatchString(v)
}

func isNewer(v1, v2 string) bool {
	if extractBaseSemver(v1) == "" || extractBaseSemver(v2) == "" {
		return false
	}
	return semver.Compare(normalizeSemver(v1), normalizeSemver(v2)) > 0
}

var prereleaseNumericPattern = regexp.MustCompile(
	`^([A-Za-z]+)(\d+)$`,
)

// normalizeSemver returns v in the form semver.Compare expects.
// Prerelease tags like rc10 split into rc.10 so they compare
// numerically.
func normalizeSemver(v string) string {
	v = strings.TrimPrefix(v, "v")
	v = gitDescribePattern.ReplaceAllString(v, "")
	if base, pre, ok := strings.Cut(v, "-"); ok && base != "" {
		v = base + "-" + splitPrerelease(pre)
	}
	return "v" + v
}

func splitPrerelease(prerelease string) string {
	var result []string
	for part := range strings.SplitSeq(prerelease, ".") {
		m := prereleaseNumericPattern.FindStringSubmatch(part)
		if m == nil || (len(m[2]) > 1 && m[2][0] == '0') {
			result = append(result, part)
			continue
		}
		result = append(result, m[1], m[2])
	}
	return strings.Join(result, ".")
}
