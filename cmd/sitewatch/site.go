package main

import (
	"fmt"

	"github.com/fwojciec/sitewatch"
)

// Run executes the add command.
func (c *AddCmd) Run(deps *Dependencies) error {
	name := c.Name
	if name == "" {
		name = sitewatch.DefaultSiteName(c.URL)
	}

	site := &sitewatch.Site{
		URL:         c.URL,
		Name:        name,
		CSSSelector: c.Selector,
		Enabled:     true,
	}
	if err := deps.Sites.CreateSite(deps.Ctx, site); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitewatch.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Added site %q with ID: %s\n", site.Name, site.ID)
	return nil
}

// Run executes the remove command.
func (c *RemoveCmd) Run(deps *Dependencies) error {
	site, err := findSite(deps, c.Site)
	if err != nil {
		return err
	}

	if err := deps.Sites.DeleteSite(deps.Ctx, site.ID); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitewatch.ErrorMessage(err))
		return err
	}
	if err := deps.Snapshots.DeleteSnapshot(deps.Ctx, site.ID); err != nil {
		fmt.Fprintf(deps.Stderr, "warning: snapshot not removed: %s\n", sitewatch.ErrorMessage(err))
	}
	if err := deps.Changes.DeleteChanges(deps.Ctx, site.ID); err != nil {
		fmt.Fprintf(deps.Stderr, "warning: history not removed: %s\n", sitewatch.ErrorMessage(err))
	}

	fmt.Fprintf(deps.Stdout, "Removed site %q\n", site.Name)
	return nil
}

// Run executes the list command.
func (c *ListCmd) Run(deps *Dependencies) error {
	sites, err := deps.Sites.FindSites(deps.Ctx, sitewatch.SiteFilter{})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitewatch.ErrorMessage(err))
		return err
	}

	if len(sites) == 0 {
		fmt.Fprintln(deps.Stdout, "No sites found. Use 'sitewatch add' to watch one.")
		return nil
	}

	for _, site := range sites {
		status := "✓"
		if !site.Enabled {
			status = "✗"
		}
		fmt.Fprintf(deps.Stdout, "%s %s [%s]\n", status, site.Name, site.ID)
		fmt.Fprintf(deps.Stdout, "  URL: %s\n", site.URL)
		fmt.Fprintf(deps.Stdout, "  Last checked: %s\n", formatTimestamp(site.LastChecked))
		if !site.LastChange.IsZero() {
			fmt.Fprintf(deps.Stdout, "  Last change: %s\n", formatTimestamp(site.LastChange))
		}
		if site.CSSSelector != "" {
			fmt.Fprintf(deps.Stdout, "  Selector: %s\n", site.CSSSelector)
		}
	}

	return nil
}

// Run executes the enable command.
func (c *EnableCmd) Run(deps *Dependencies) error {
	return setEnabled(deps, c.Site, true)
}

// Run executes the disable command.
func (c *DisableCmd) Run(deps *Dependencies) error {
	return setEnabled(deps, c.Site, false)
}

func setEnabled(deps *Dependencies, ref string, enabled bool) error {
	site, err := findSite(deps, ref)
	if err != nil {
		return err
	}

	site, err = deps.Sites.UpdateSite(deps.Ctx, site.ID, sitewatch.SiteUpdate{Enabled: &enabled})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitewatch.ErrorMessage(err))
		return err
	}

	state := "Enabled"
	if !enabled {
		state = "Disabled"
	}
	fmt.Fprintf(deps.Stdout, "%s site %q\n", state, site.Name)
	return nil
}

// findSite resolves a site by ID, falling back to an exact URL match.
func findSite(deps *Dependencies, ref string) (*sitewatch.Site, error) {
	site, err := deps.Sites.FindSiteByID(deps.Ctx, ref)
	if err == nil {
		return site, nil
	} else if sitewatch.ErrorCode(err) != sitewatch.ENOTFOUND {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitewatch.ErrorMessage(err))
		return nil, err
	}

	sites, err := deps.Sites.FindSites(deps.Ctx, sitewatch.SiteFilter{URL: &ref})
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", sitewatch.ErrorMessage(err))
		return nil, err
	}
	if len(sites) == 0 {
		fmt.Fprintf(deps.Stderr, "error: site %q not found. Use 'sitewatch list' to see watched sites.\n", ref)
		return nil, sitewatch.Errorf(sitewatch.ENOTFOUND, "site %q not found", ref)
	}
	return sites[0], nil
}
