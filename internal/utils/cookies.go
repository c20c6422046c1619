package utils

import (
	"encoding/json"
	"os"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CookieSource returns cookies to attach to outbound scraper/downloader
// requests. A missing source yields an empty map, never an error.
type CookieSource interface {
	Cookies() map[string]string
}

// FileCookieSource reads cookies from a JSON file of {"name": ..., "value": ...}
// objects (a browser cookie export). Parses are memoized for a short TTL so
// the file is not re-read on every chunk of a large course download.
type FileCookieSource struct {
	path  string
	cache *gocache.Cache
}

const cookieCacheKey = "cookies"

// NewFileCookieSource creates a cookie source backed by the given file.
func NewFileCookieSource(path string) *FileCookieSource {
	return &FileCookieSource{
		path:  path,
		cache: gocache.New(30*time.Second, time.Minute),
	}
}

// Cookies returns the name/value map from the cookie file. A missing or
// malformed file yields an empty map.
func (s *FileCookieSource) Cookies() map[string]string {
	if cached, ok := s.cache.Get(cookieCacheKey); ok {
		return cached.(map[string]string)
	}

	cookies := s.load()
	s.cache.Set(cookieCacheKey, cookies, gocache.DefaultExpiration)
	return cookies
}

func (s *FileCookieSource) load() map[string]string {
	cookies := make(map[string]string)

	payload, err := os.ReadFile(s.path)
	if err != nil {
		return cookies
	}

	var items []struct {
		Name  string `json:"name"`
		Value string `json:"value"`
	}
	if err := json.Unmarshal(payload, &items); err != nil {
		return cookies
	}

	for _, item := range items {
		if item.Name != "" && item.Value != "" {
			cookies[item.Name] = item.Value
		}
	}
	return cookies
}

// NoCookies is a CookieSource with nothing to offer.
type NoCookies struct{}

// Cookies returns an empty map.
func (NoCookies) Cookies() map[string]string { return map[string]string{} }
