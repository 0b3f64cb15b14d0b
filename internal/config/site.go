package config

import (
	"maps"
	"strings"
)

// SiteConfig holds request settings for a single host.
// This allows reaching pages behind a consent wall or a login.
type SiteConfig struct {
	// Cookie is an HTTP cookie sent with every request while resolving this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are custom HTTP headers to include in requests for this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Depth overrides the global @import depth for this site.
	// If zero, the global MaxDepth is used.
	Depth int `yaml:"depth,omitempty"`

	// UserAgent overrides the User-Agent header for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// AcceptLanguage overrides the Accept-Language header for this site.
	// Sites serving different fonts per locale can be checked per language.
	AcceptLanguage string `yaml:"acceptLanguage,omitempty"`
}

// File represents the structure of the .gfontscan configuration file.
type File struct {
	// Sites maps host names to their site-specific configurations.
	// Keys are bare host names without scheme or port, such as "example.com".
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for host merged over the defaults.
// A host without its own entry falls back to the entry without "www.".
func (cf *File) GetSiteConfig(host string) SiteConfig {
	result := cf.Defaults
	if result.Headers != nil {
		result.Headers = maps.Clone(result.Headers)
	}

	siteConfig, ok := cf.lookup(host)
	if !ok {
		return result
	}

	if siteConfig.Cookie != "" {
		result.Cookie = siteConfig.Cookie
	}
	if siteConfig.Depth != 0 {
		result.Depth = siteConfig.Depth
	}
	if siteConfig.UserAgent != "" {
		result.UserAgent = siteConfig.UserAgent
	}
	if siteConfig.AcceptLanguage != "" {
		result.AcceptLanguage = siteConfig.AcceptLanguage
	}
	if len(siteConfig.Headers) > 0 {
		if result.Headers == nil {
			result.Headers = make(map[string]string, len(siteConfig.Headers))
		}
		maps.Copy(result.Headers, siteConfig.Headers)
	}

	return result
}

func (cf *File) lookup(host string) (SiteConfig, bool) {
	host = strings.ToLower(host)
	if sc, ok := cf.Sites[host]; ok {
		return sc, true
	}
	if bare, found := strings.CutPrefix(host, "www."); found {
		sc, ok := cf.Sites[bare]
		return sc, ok
	}
	return SiteConfig{}, false
}
