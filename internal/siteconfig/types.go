package siteconfig

// SiteConfig is the validated, normalised configuration handed to the
// site-generation engine. Values are treated as immutable once built.
type SiteConfig struct {
	Title       string      `json:"title" yaml:"title"`
	Description string      `json:"description" yaml:"description"`
	Lang        string      `json:"lang,omitempty" yaml:"lang,omitempty"`
	Head        []HeadTag   `json:"head" yaml:"head"`
	Theme       ThemeConfig `json:"themeConfig" yaml:"themeConfig"`
}

// HeadTag is an element emitted into the page <head>, in declaration order.
type HeadTag struct {
	TagName    string            `json:"tagName" yaml:"tagName"`
	Attributes map[string]string `json:"attributes" yaml:"attributes"`
}

// ThemeConfig holds presentation options for the default theme.
type ThemeConfig struct {
	Logo        string             `json:"logo,omitempty" yaml:"logo,omitempty"`
	Nav         []NavItem          `json:"nav" yaml:"nav"`
	Sidebar     []SidebarGroup     `json:"sidebar" yaml:"sidebar"`
	SocialLinks []SocialLink       `json:"socialLinks" yaml:"socialLinks"`
	Search      *SearchConfig      `json:"search,omitempty" yaml:"search,omitempty"`
	Footer      *FooterConfig      `json:"footer,omitempty" yaml:"footer,omitempty"`
	LastUpdated *LastUpdatedConfig `json:"lastUpdated,omitempty" yaml:"lastUpdated,omitempty"`
}

// NavItem is a header navigation entry. Exactly one of Link and Items is set;
// Items turns the entry into a dropdown.
type NavItem struct {
	Text  string    `json:"text" yaml:"text"`
	Link  string    `json:"link,omitempty" yaml:"link,omitempty"`
	Items []NavItem `json:"items,omitempty" yaml:"items,omitempty"`
}

// SidebarGroup is a top-level sidebar entry: either a labelled cluster of
// links (Items) or a standalone link (Link). Exactly one of the two is set.
type SidebarGroup struct {
	Text      string        `json:"text" yaml:"text"`
	Link      string        `json:"link,omitempty" yaml:"link,omitempty"`
	Collapsed *bool         `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
	Items     []SidebarItem `json:"items,omitempty" yaml:"items,omitempty"`
}

// SidebarItem is a single sidebar link.
type SidebarItem struct {
	Text string `json:"text" yaml:"text"`
	Link string `json:"link" yaml:"link"`
}

// SocialLink is an icon linking to an external profile.
type SocialLink struct {
	Icon SocialIcon `json:"icon" yaml:"icon"`
	Link string     `json:"link" yaml:"link"`
}

// SearchConfig selects the search provider.
type SearchConfig struct {
	Provider SearchProvider    `json:"provider" yaml:"provider"`
	Options  map[string]string `json:"options,omitempty" yaml:"options,omitempty"`
}

// FooterConfig is the optional page footer.
type FooterConfig struct {
	Message   string `json:"message,omitempty" yaml:"message,omitempty"`
	Copyright string `json:"copyright,omitempty" yaml:"copyright,omitempty"`
}

// LastUpdatedConfig controls the "last updated" stamp on pages.
type LastUpdatedConfig struct {
	Text          string        `json:"text" yaml:"text"`
	FormatOptions FormatOptions `json:"formatOptions" yaml:"formatOptions"`
}

// FormatOptions mirrors Intl.DateTimeFormat style options.
type FormatOptions struct {
	DateStyle DateTimeStyle `json:"dateStyle" yaml:"dateStyle"`
	TimeStyle DateTimeStyle `json:"timeStyle" yaml:"timeStyle"`
}

// SocialIcon identifies a known social provider.
type SocialIcon string

const (
	IconDiscord   SocialIcon = "discord"
	IconFacebook  SocialIcon = "facebook"
	IconGitHub    SocialIcon = "github"
	IconInstagram SocialIcon = "instagram"
	IconLinkedIn  SocialIcon = "linkedin"
	IconMastodon  SocialIcon = "mastodon"
	IconNPM       SocialIcon = "npm"
	IconSlack     SocialIcon = "slack"
	IconTwitter   SocialIcon = "twitter"
	IconX         SocialIcon = "x"
	IconYouTube   SocialIcon = "youtube"
)

var knownIcons = []SocialIcon{
	IconDiscord, IconFacebook, IconGitHub, IconInstagram, IconLinkedIn,
	IconMastodon, IconNPM, IconSlack, IconTwitter, IconX, IconYouTube,
}

// SearchProvider identifies the search backend.
type SearchProvider string

const (
	SearchLocal    SearchProvider = "local"
	SearchExternal SearchProvider = "external"
)

var knownProviders = []SearchProvider{SearchLocal, SearchExternal}

// DateTimeStyle is one of the Intl.DateTimeFormat style keywords.
type DateTimeStyle string

const (
	StyleFull   DateTimeStyle = "full"
	StyleLong   DateTimeStyle = "long"
	StyleMedium DateTimeStyle = "medium"
	StyleShort  DateTimeStyle = "short"
)

var knownStyles = []DateTimeStyle{StyleFull, StyleLong, StyleMedium, StyleShort}

const (
	defaultLang            = "en-US"
	defaultLastUpdatedText = "Last updated"
	defaultDateTimeStyle   = StyleShort
)
