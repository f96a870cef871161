// Package catalog loads the static site catalog (urls.json) describing the
// ranking pages to crawl and their update cadence.
package catalog

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
)

// PageKind selects the parser used for a page's payload.
type PageKind string

// Supported payload kinds.
const (
	KindJSON PageKind = "json"
	KindHTML PageKind = "html"
)

// Well-known schedule aliases. Anything else is treated as a raw cron spec
// and validated at load time.
const (
	ScheduleHourly = "hourly"
	ScheduleDaily  = "daily"
	ScheduleWeekly = "weekly"
)

// CronParser accepts five-field specs, six-field specs with a leading
// seconds column, and @descriptors. The scheduler registers jobs with the
// same parser so load-time validation matches registration.
var CronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Page describes one ranking endpoint to crawl.
type Page struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	URL      string   `json:"url"`
	Kind     PageKind `json:"kind"`
	Channel  string   `json:"channel,omitempty"`
	Schedule string   `json:"schedule"`
}

// CronSpec translates the page schedule into a robfig/cron spec.
func (p Page) CronSpec() string {
	switch p.Schedule {
	case ScheduleHourly:
		return "@hourly"
	case ScheduleDaily:
		return "@daily"
	case ScheduleWeekly:
		return "@weekly"
	default:
		return p.Schedule
	}
}

// Catalog holds the parsed site catalog.
type Catalog struct {
	Site      string `json:"site"`
	UserAgent string `json:"user_agent,omitempty"`
	Pages     []Page `json:"pages"`

	byID map[string]Page
}

// Load reads and validates the catalog file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates catalog JSON.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(c.Pages) == 0 {
		return nil, fmt.Errorf("catalog has no pages")
	}
	c.byID = make(map[string]Page, len(c.Pages))
	for i, p := range c.Pages {
		if err := validatePage(p); err != nil {
			return nil, fmt.Errorf("page %d (%q): %w", i, p.ID, err)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate page id %q", p.ID)
		}
		c.byID[p.ID] = p
	}
	return &c, nil
}

func validatePage(p Page) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("id is required")
	}
	u, err := url.Parse(p.URL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("url %q is not absolute", p.URL)
	}
	switch p.Kind {
	case KindJSON, KindHTML:
	default:
		return fmt.Errorf("unknown kind %q", p.Kind)
	}
	if strings.TrimSpace(p.Schedule) == "" {
		return fmt.Errorf("schedule is required")
	}
	if _, err := CronParser.Parse(p.CronSpec()); err != nil {
		return fmt.Errorf("schedule %q: %w", p.Schedule, err)
	}
	return nil
}

// Page returns the page with the given id.
func (c *Catalog) Page(id string) (Page, bool) {
	p, ok := c.byID[id]
	return p, ok
}

// PageIDs returns the ids of all pages in catalog order.
func (c *Catalog) PageIDs() []string {
	ids := make([]string, 0, len(c.Pages))
	for _, p := range c.Pages {
		ids = append(ids, p.ID)
	}
	return ids
}
