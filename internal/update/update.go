// Package update checks a release manifest for a newer version of the
// service. Downloading and installing are left to the operator.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// ErrInvalidVersion is returned for versions that are not semantic.
var ErrInvalidVersion = errors.New("invalid version")

// Release is the manifest published with each release.
type Release struct {
	Version string `json:"version"`
	URL     string `json:"url"`
	Notes   string `json:"notes"`
}

// Result of a check.
type Result struct {
	Current   string
	Latest    Release
	Available bool
}

// Checker fetches the latest release.
type Checker interface {
	Latest(ctx context.Context) (Release, error)
}

// HTTPChecker reads the manifest from a URL.
type HTTPChecker struct {
	URL    string
	Client *http.Client
}

func (c HTTPChecker) Latest(ctx context.Context) (Release, error) {
	client := c.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return Release{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return Release{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf("manifest: unexpected status %s", resp.Status)
	}

	var r Release
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Release{}, fmt.Errorf("manifest: %w", err)
	}

	return r, nil
}

// Canonical returns v in the "vMAJOR.MINOR.PATCH" form, accepting a
// missing "v" prefix.
func Canonical(v string) (string, error) {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", fmt.Errorf("%w: %q", ErrInvalidVersion, v)
	}
	return semver.Canonical(v), nil
}

// Check compares current with the latest release.
func Check(ctx context.Context, c Checker, current string) (Result, error) {
	cur, err := Canonical(current)
	if err != nil {
		return Result{}, fmt.Errorf("current: %w", err)
	}

	latest, err := c.Latest(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("latest: %w", err)
	}

	lv, err := Canonical(latest.Version)
	if err != nil {
		return Result{}, fmt.Errorf("latest: %w", err)
	}

	res := Result{
		Current:   cur,
		Latest:    latest,
		Available: semver.Compare(lv, cur) > 0,
	}

	return res, nil
}

// Run checks in the background and logs the outcome. Errors are only
// logged.
func Run(ctx context.Context, log *slog.Logger, c Checker, current string) {
	go func() {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		res, err := Check(ctx, c, current)
		if err != nil {
			log.Info("update", "status", "check failed", "ERROR", err)
			return
		}

		if !res.Available {
			log.Info("update", "status", "up to date", "version", res.Current)
			return
		}

		log.Info("update", "status", "update available", "version", res.Current,
			"latest", res.Latest.Version, "url", res.Latest.URL, "notes", res.Latest.Notes)
	}()
}
