package version

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/dhabedank/promptbench/internal/tui"
)

const (
	// GitHubRepo is the repository for version checks.
	GitHubRepo = "dhabedank/promptbench"

	// CheckInterval is how often to check for updates (24 hours).
	CheckInterval = 24 * time.Hour

	defaultAPIBase = "https://api.github.com"
)

// GitHubRelease represents a GitHub release.
type GitHubRelease struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// CheckResult holds the result of a version check.
type CheckResult struct {
	CurrentVersion  string
	LatestVersion   string
	UpdateAvailable bool
	ReleaseURL      string
}

// Checker looks up the latest release at most once per CheckInterval.
type Checker struct {
	APIBase    string
	MarkerPath string
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

// NewChecker returns a checker against GitHub with the default marker file.
func NewChecker(logger *zap.SugaredLogger) *Checker {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Checker{
		APIBase:    defaultAPIBase,
		MarkerPath: markerPath(),
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
		Logger:     logger,
	}
}

// CheckForUpdate checks if a newer version is available using the default checker.
func CheckForUpdate(ctx context.Context, currentVersion string) *CheckResult {
	return NewChecker(nil).Check(ctx, currentVersion)
}

// Check returns nil if the check should be skipped (dev build, checked
// recently) or fails. Failures never block the caller.
func (c *Checker) Check(ctx context.Context, currentVersion string) *CheckResult {
	current, err := semver.NewVersion(currentVersion)
	if err != nil {
		return nil // dev or unparseable build
	}

	if c.shouldSkip() {
		return nil
	}
	c.markChecked()

	latest, err := c.fetchLatestRelease(ctx)
	if err != nil {
		c.Logger.Debugw("update check failed", "error", err)
		return nil
	}

	latestVer, err := semver.NewVersion(latest.TagName)
	if err != nil {
		c.Logger.Debugw("unparseable release tag", "tag", latest.TagName)
		return nil
	}

	if !latestVer.GreaterThan(current) {
		return nil
	}
	return &CheckResult{
		CurrentVersion:  currentVersion,
		LatestVersion:   latest.TagName,
		UpdateAvailable: true,
		ReleaseURL:      latest.HTMLURL,
	}
}

// PrintUpdateNotice prints a notice if an update is available.
func PrintUpdateNotice(w io.Writer, result *CheckResult) {
	if result == nil || !result.UpdateAvailable {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s A new version of promptbench is available: %s (you have %s)\n",
		tui.WarningStyle.Render("!"),
		tui.SuccessStyle.Render(result.LatestVersion),
		result.CurrentVersion,
	)
	fmt.Fprintf(w, "  Update: %s\n", tui.HelpStyle.Render("go install github.com/"+GitHubRepo+"@latest"))
	if result.ReleaseURL != "" {
		fmt.Fprintf(w, "  Notes:  %s\n", tui.HelpStyle.Render(result.ReleaseURL))
	}
	fmt.Fprintln(w)
}

func (c *Checker) fetchLatestRelease(ctx context.Context) (*GitHubRelease, error) {
	url := fmt.Sprintf("%s/repos/%s/releases/latest", c.APIBase, GitHubRepo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build release request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch latest release")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("GitHub API returned %d", resp.StatusCode)
	}

	var release GitHubRelease
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return nil, errors.Wrap(err, "failed to decode release")
	}
	return &release, nil
}

// shouldSkip returns true if we checked recently.
func (c *Checker) shouldSkip() bool {
	if c.MarkerPath == "" {
		return false
	}
	info, err := os.Stat(c.MarkerPath)
	if err != nil {
		return false
	}
	return time.Since(info.ModTime()) < CheckInterval
}

// markChecked touches the marker file.
func (c *Checker) markChecked() {
	if c.MarkerPath == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(c.MarkerPath), 0755); err != nil {
		return
	}
	now := time.Now()
	if err := os.Chtimes(c.MarkerPath, now, now); err != nil {
		_ = os.WriteFile(c.MarkerPath, []byte{}, 0644)
	}
}

// stateDir is where promptbench keeps its markers.
func stateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".promptbench")
}

func markerPath() string {
	dir := stateDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, ".last-update-check")
}
