package sitewatch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"time"
)

// Site represents a watched web page and its monitoring state.
//
// LastHash is empty until the first successful check. LastChecked and
// LastChange are zero when unset; LastChange never exceeds LastChecked.
type Site struct {
	ID          string    `json:"id" yaml:"id"`
	URL         string    `json:"url" yaml:"url"`
	Name        string    `json:"name" yaml:"name"`
	CSSSelector string    `json:"cssSelector,omitempty" yaml:"css_selector,omitempty"` // empty means the page body
	LastHash    string    `json:"lastHash,omitempty" yaml:"last_hash,omitempty"`
	LastChecked time.Time `json:"lastChecked" yaml:"last_checked,omitempty"`
	LastChange  time.Time `json:"lastChange" yaml:"last_change,omitempty"`
	Enabled     bool      `json:"enabled" yaml:"enabled"`
}

// Validate returns an error if the site contains invalid fields.
func (s *Site) Validate() error {
	if s.URL == "" {
		return Errorf(EINVALID, "site URL required")
	}
	u, err := url.Parse(s.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Errorf(EINVALID, "site URL must be an absolute http(s) URL: %q", s.URL)
	}
	if s.Name == "" {
		return Errorf(EINVALID, "site name required")
	}
	return nil
}

// NewSiteID derives the stable identifier of a site from its URL.
// It returns the first 8 bytes of the SHA-256 digest of the URL, hex-encoded.
func NewSiteID(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return hex.EncodeToString(sum[:8])
}

// DefaultSiteName returns the host of the URL, or the URL itself when it
// has no host.
func DefaultSiteName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Hostname()
}

// SiteService represents a service for managing watched sites.
type SiteService interface {
	// CreateSite registers a new site. The ID is derived from the URL.
	// Returns ECONFLICT if a site with the same URL already exists.
	CreateSite(ctx context.Context, site *Site) error

	// FindSiteByID retrieves a site by ID.
	// Returns ENOTFOUND if site does not exist.
	FindSiteByID(ctx context.Context, id string) (*Site, error)

	// FindSites retrieves sites matching the filter in creation order.
	FindSites(ctx context.Context, filter SiteFilter) ([]*Site, error)

	// UpdateSite applies the non-nil fields of upd to the stored site and
	// returns the result. Fields not named in upd keep their stored values.
	// Returns ENOTFOUND if site does not exist.
	UpdateSite(ctx context.Context, id string, upd SiteUpdate) (*Site, error)

	// DeleteSite permanently removes a site.
	// Returns ENOTFOUND if site does not exist.
	DeleteSite(ctx context.Context, id string) error
}

// SiteUpdate represents fields that can be updated on a site.
// The URL, and therefore the ID, never changes.
type SiteUpdate struct {
	Name        *string `json:"name"`
	CSSSelector *string `json:"cssSelector"`
	Enabled     *bool   `json:"enabled"`

	LastHash    *string    `json:"lastHash"`
	LastChecked *time.Time `json:"lastChecked"`
	LastChange  *time.Time `json:"lastChange"`
}

// Apply copies the non-nil fields of u onto site.
func (u SiteUpdate) Apply(site *Site) {
	if u.Name != nil {
		site.Name = *u.Name
	}
	if u.CSSSelector != nil {
		site.CSSSelector = *u.CSSSelector
	}
	if u.Enabled != nil {
		site.Enabled = *u.Enabled
	}
	if u.LastHash != nil {
		site.LastHash = *u.LastHash
	}
	if u.LastChecked != nil {
		site.LastChecked = *u.LastChecked
	}
	if u.LastChange != nil {
		site.LastChange = *u.LastChange
	}
}

// StateUpdate returns an update carrying the monitoring state of site:
// LastHash, LastChecked and LastChange. Scheduling fields are left out so a
// concurrent rename or disable is not overwritten.
func StateUpdate(site *Site) SiteUpdate {
	hash, checked, change := site.LastHash, site.LastChecked, site.LastChange
	return SiteUpdate{LastHash: &hash, LastChecked: &checked, LastChange: &change}
}

// SiteFilter represents a filter for FindSites.
type SiteFilter struct {
	ID      *string `json:"id"`
	URL     *string `json:"url"`
	Enabled *bool   `json:"enabled"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// Match returns true if the site passes the filter.
// Offset and Limit are not considered.
func (f SiteFilter) Match(site *Site) bool {
	if f.ID != nil && site.ID != *f.ID {
		return false
	}
	if f.URL != nil && site.URL != *f.URL {
		return false
	}
	if f.Enabled != nil && site.Enabled != *f.Enabled {
		return false
	}
	return true
}
