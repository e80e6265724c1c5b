package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/temoto/robotstxt"

	"HackathonScanner/internal/domain"
)

// maxRobotsBodyBytes limits the size of robots.txt responses we read.
const maxRobotsBodyBytes = 512 * 1024

// CheckPaths fetches the source's robots.txt and verifies every path
// the adapter intends to crawl. A disallowed path yields a
// *PolitenessError; a missing or unreachable robots.txt permits
// everything, since politeness is advisory rather than a security
// boundary.
func (f *Fetcher) CheckPaths(ctx context.Context, baseURL string, source domain.Source, paths []string) error {
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("politeness check: invalid base url %q", baseURL)
	}

	robotsURL := parsed.Scheme + "://" + parsed.Host + "/robots.txt"
	data, err := f.fetchRobots(ctx, robotsURL)
	if err != nil {
		f.debug("robots.txt unavailable, allowing all", "source", source, "url", robotsURL, "error", err)
		return nil
	}

	group := data.FindGroup(f.cfg.UserAgent)
	for _, path := range paths {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		if !group.Test(path) {
			return &PolitenessError{Source: source, Path: path}
		}
	}

	return nil
}

func (f *Fetcher) fetchRobots(ctx context.Context, robotsURL string) (*robotstxt.RobotsData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request robots.txt: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	// 4xx yields an allow-all document, 5xx a conservative disallow-all.
	data, err := robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	return data, nil
}
