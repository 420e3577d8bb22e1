// Package yaml implements a sitewatch.SiteService backed by a YAML file.
package yaml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/fwojciec/sitewatch"
	"github.com/fwojciec/sitewatch/fs"
	"gopkg.in/yaml.v3"
)

// Ensure SiteService implements sitewatch.SiteService at compile time.
var _ sitewatch.SiteService = (*SiteService)(nil)

// document is the on-disk layout of the sites file.
type document struct {
	Sites []*sitewatch.Site `yaml:"sites"`
}

// SiteService stores the site list in a single YAML file. Every mutation
// rewrites the whole file atomically. It is safe for concurrent use within
// one process.
type SiteService struct {
	mu   sync.Mutex
	path string
}

// NewSiteService creates a SiteService backed by the file at path.
// A missing file is treated as an empty site list.
func NewSiteService(path string) *SiteService {
	return &SiteService{path: path}
}

// CreateSite appends a new site with an ID derived from its URL.
func (s *SiteService) CreateSite(ctx context.Context, site *sitewatch.Site) error {
	if err := site.Validate(); err != nil {
		return err
	}
	site.ID = sitewatch.NewSiteID(site.URL)

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for _, existing := range doc.Sites {
		if existing.ID == site.ID || existing.URL == site.URL {
			return sitewatch.Errorf(sitewatch.ECONFLICT, "site already exists: %s", site.URL)
		}
	}

	cp := *site
	doc.Sites = append(doc.Sites, &cp)
	return s.save(doc)
}

// FindSiteByID retrieves a site by ID.
func (s *SiteService) FindSiteByID(ctx context.Context, id string) (*sitewatch.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, site := range doc.Sites {
		if site.ID == id {
			return site, nil
		}
	}
	return nil, sitewatch.Errorf(sitewatch.ENOTFOUND, "site not found")
}

// FindSites retrieves sites matching the filter in file order.
func (s *SiteService) FindSites(ctx context.Context, filter sitewatch.SiteFilter) ([]*sitewatch.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}

	sites := []*sitewatch.Site{}
	skipped := 0
	for _, site := range doc.Sites {
		if !filter.Match(site) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		sites = append(sites, site)
		if filter.Limit > 0 && len(sites) == filter.Limit {
			break
		}
	}
	return sites, nil
}

// UpdateSite applies upd to the stored site. The file is re-read under the
// lock, so fields not named in upd keep whatever was last written.
func (s *SiteService) UpdateSite(ctx context.Context, id string, upd sitewatch.SiteUpdate) (*sitewatch.Site, error) {
	if upd.Name != nil && *upd.Name == "" {
		return nil, sitewatch.Errorf(sitewatch.EINVALID, "site name required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return nil, err
	}
	for _, site := range doc.Sites {
		if site.ID == id {
			upd.Apply(site)
			if err := s.save(doc); err != nil {
				return nil, err
			}
			cp := *site
			return &cp, nil
		}
	}
	return nil, sitewatch.Errorf(sitewatch.ENOTFOUND, "site not found")
}

// DeleteSite permanently removes a site.
func (s *SiteService) DeleteSite(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.load()
	if err != nil {
		return err
	}
	for i, existing := range doc.Sites {
		if existing.ID == id {
			doc.Sites = append(doc.Sites[:i], doc.Sites[i+1:]...)
			return s.save(doc)
		}
	}
	return sitewatch.Errorf(sitewatch.ENOTFOUND, "site not found")
}

// load reads the sites file. Callers must hold mu.
func (s *SiteService) load() (*document, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return &document{}, nil
	} else if err != nil {
		return nil, sitewatch.Errorf(sitewatch.ESTORAGE, "read sites: %v", err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, sitewatch.Errorf(sitewatch.ESTORAGE, "parse %s: %v", s.path, err)
	}
	return &doc, nil
}

// save writes the sites file atomically. Callers must hold mu.
func (s *SiteService) save(doc *document) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode sites: %w", err)
	}
	if err := fs.WriteFile(s.path, data); err != nil {
		return sitewatch.Errorf(sitewatch.ESTORAGE, "write sites: %v", err)
	}
	return nil
}
