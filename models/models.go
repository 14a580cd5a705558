// Package models holds the canonical data shapes shared across the crawl
// pipeline: pages, aliases, runs, overrides, and the embedded navigation
// structure attached to every page.
package models

import "time"

// CrawlStatus is the terminal classification of a fetch attempt.
type CrawlStatus string

const (
	StatusOK       CrawlStatus = "OK"
	StatusRedirect CrawlStatus = "REDIRECT_ALIAS"
	StatusNotFound CrawlStatus = "NOT_FOUND"
	StatusSoft404  CrawlStatus = "SOFT_404"
	StatusError    CrawlStatus = "ERROR"
)

// FetchMode identifies which fetch-layer implementation produced a page.
type FetchMode string

const (
	FetchStatic  FetchMode = "static"
	FetchBrowser FetchMode = "browser"
)

// ExtractionMethod names the content-extraction strategy that won the cascade.
type ExtractionMethod string

const (
	ExtractionReadability    ExtractionMethod = "readability"
	ExtractionSemantic       ExtractionMethod = "semantic"
	ExtractionCMSPattern     ExtractionMethod = "cms_pattern"
	ExtractionDomainOverride ExtractionMethod = "domain_override"
	ExtractionFallback       ExtractionMethod = "fallback"
)

// LinkType classifies how a navigation anchor is rendered.
type LinkType string

const (
	LinkText  LinkType = "text"
	LinkImage LinkType = "image"
	LinkIcon  LinkType = "icon"
)

// SourceType classifies the structural context a content link was found in.
type SourceType string

const (
	SourceContextualBody SourceType = "contextual_body"
	SourceFAQModule      SourceType = "faq_module"
	SourceTOCOrJump      SourceType = "toc_or_jump"
	SourceBreadcrumb     SourceType = "breadcrumb"
	SourcePrimaryNav     SourceType = "primary_nav"
	SourceFooter         SourceType = "footer"
	SourceTemplateCTA    SourceType = "template_cta"
	SourceRepeatedBlock  SourceType = "repeated_block"
	SourceRelatedPosts   SourceType = "related_posts"
	SourceAuthorBio      SourceType = "author_bio"
	SourceTestimonial    SourceType = "testimonial"
)

// StructuralType enumerates the region kinds the Structural Detector finds.
type StructuralType string

const (
	StructFAQ          StructuralType = "faq_module"
	StructTOC          StructuralType = "toc_or_jump"
	StructBreadcrumb   StructuralType = "breadcrumb"
	StructCTA          StructuralType = "template_cta"
	StructAccordion    StructuralType = "accordion"
	StructTestimonial  StructuralType = "testimonial"
	StructAuthorBio    StructuralType = "author_bio"
	StructRelatedPosts StructuralType = "related_posts"
)

// NavItem is one entry of a navigation cluster (primary, footer, utility,
// language switcher).
type NavItem struct {
	URL          string   `json:"url"`
	Label        string   `json:"label"`
	Depth        int      `json:"depth"`
	Order        int      `json:"order"`
	ParentLabels []string `json:"parent_labels,omitempty"`
	IsExternal   bool     `json:"is_external"`
	LinkType     LinkType `json:"link_type"`
}

// BreadcrumbItem is one crumb in the breadcrumb trail; URL is absent for the
// current (terminal) page.
type BreadcrumbItem struct {
	Label string `json:"label"`
	URL   string `json:"url,omitempty"`
}

// ContentLink is a link found inside the main content region.
type ContentLink struct {
	URL             string     `json:"url"`
	Label           string     `json:"label"`
	SourceType      SourceType `json:"source_type"`
	NearestHeading  string     `json:"nearest_heading,omitempty"`
	BodyPositionPct int        `json:"body_position_pct"`
	IsExternal      bool       `json:"is_external"`
}

// ExtractionMeta records cheap diagnostics about how the nav/content pass ran.
type ExtractionMeta struct {
	SelectorsMatched []string `json:"selectors_matched,omitempty"`
	ClusterCount     int      `json:"cluster_count"`
	HasMegaMenu      bool     `json:"has_mega_menu"`
	ExtractionTimeMs int64    `json:"extraction_time_ms"`
}

// StructuralStats is the aggregate count per structural type, persisted
// verbatim as the page's structural stats JSON.
type StructuralStats struct {
	FAQModules   int `json:"faq_modules"`
	TOCSections  int `json:"toc_sections"`
	Breadcrumbs  int `json:"breadcrumbs"`
	TemplateCTAs int `json:"template_ctas"`
	Accordions   int `json:"accordions"`
	Testimonials int `json:"testimonials"`
	AuthorBios   int `json:"author_bios"`
	RelatedPosts int `json:"related_posts"`
}

// NavStructure is the embedded JSON document stored on Page.nav_structure.
type NavStructure struct {
	PrimaryNav       []NavItem        `json:"primary_nav"`
	FooterNav        []NavItem        `json:"footer_nav"`
	UtilityHeader    []NavItem        `json:"utility_header"`
	LanguageSwitcher []NavItem        `json:"language_switcher"`
	Breadcrumb       []BreadcrumbItem `json:"breadcrumb"`
	ContentLinks     []ContentLink    `json:"content_links"`
	StructuralStats  StructuralStats  `json:"structural_stats"`
	ExtractionMeta   ExtractionMeta   `json:"extraction_meta"`
}

// StructuralElement is a contiguous raw-HTML region classified as one of the
// structural types, identified by byte offsets into the raw HTML string.
type StructuralElement struct {
	Type       StructuralType
	StartIndex int
	EndIndex   int
	Selector   string
	HasSchema  bool
	Questions  []FAQItem
	Metadata   map[string]string
}

// FAQItem is one question/answer pair harvested from a FAQ region, whether
// sourced from JSON-LD or from selector-matched markup.
type FAQItem struct {
	Question string
	Answer   string
}

// Page is the canonical page record, uniquely keyed by FinalURL.
type Page struct {
	ID                   int64
	FinalURL             string
	StatusCode           int
	CrawlStatus          CrawlStatus
	RequestedURLOriginal string
	RedirectChain        []string
	FetchMode            FetchMode
	RunID                string
	SitemapTypeHint      *string
	HTMLContent          string
	CleanHTML            string
	Markdown             string
	MarkdownEnhanced     string
	ContentHash          *string
	Title                string
	H1                   string
	MetaDescription      string
	WordCount            int
	NavStructure         *NavStructure
	StructuralStats      *StructuralStats
	ExtractionMethod     ExtractionMethod
	JunkScore            float64
	LastCrawledAt        time.Time
	LastError            *string
}

// UrlAlias maps a requested URL to its canonical terminal URL.
type UrlAlias struct {
	RequestedURL  string
	FinalURL      string
	StatusCode    int
	RedirectChain []string
	FirstSeenAt   time.Time
	LastSeenAt    time.Time
	RunID         string
}

// CrawlRun is one crawl invocation's bookkeeping record.
type CrawlRun struct {
	RunID             string
	SeedSitemaps      []string
	MaxPages          int
	DefaultFetchMode  FetchMode
	StartedAt         time.Time
	FinishedAt        *time.Time
	Discovered        int64
	Crawled           int64
	Redirects         int64
	Errors            int64
	Skipped           int64
	TotalContentBytes int64
}

// DomainOverride is a per-host selector-configuration override.
type DomainOverride struct {
	Domain               string
	Enabled              bool
	MainContentSelectors []string
	RemoveSelectors      []string
	ForceFetchMode       *FetchMode
	Notes                string
}
