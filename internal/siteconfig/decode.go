package siteconfig

import (
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
)

const (
	shapeString       = "string"
	shapeNonEmpty     = "non-empty string"
	shapeBool         = "boolean"
	shapeMapping      = "mapping"
	shapeSequence     = "sequence"
	shapeStringMap    = "mapping of string values"
	shapeHeadTag      = "{tagName, attributes} or [tagName, attributes]"
	shapeNavEntry     = "{text, link} or {text, items}"
	shapeSidebarGroup = "{text, link} or {text, items}"
	shapeSidebarItem  = "{text, link}"
	shapeSocialLink   = "{icon, link}"
	shapeLastUpdated  = "boolean or {text, formatOptions}"
)

var (
	siteKeys        = []string{"title", "description", "lang", "head", "themeConfig"}
	themeKeys       = []string{"logo", "nav", "sidebar", "socialLinks", "search", "footer", "lastUpdated"}
	headKeys        = []string{"tagName", "attributes"}
	navKeys         = []string{"text", "link", "items"}
	groupKeys       = []string{"text", "link", "collapsed", "items"}
	itemKeys        = []string{"text", "link"}
	socialKeys      = []string{"icon", "link"}
	searchKeys      = []string{"provider", "options"}
	footerKeys      = []string{"message", "copyright"}
	lastUpdatedKeys = []string{"text", "formatOptions"}
	formatKeys      = []string{"dateStyle", "timeStyle"}

	// assetAttributes are head tag attributes whose values reference site assets.
	assetAttributes = []string{"href", "src"}
)

// Warning is a non-fatal finding produced while building a configuration.
type Warning struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (w Warning) String() string {
	return w.Path + ": " + w.Message
}

// decoder turns the loosely typed declaration into typed values, recording
// every mismatch it meets rather than stopping at the first one.
type decoder struct {
	errs     []error
	warnings []Warning
}

func (d *decoder) mismatch(path, shape string) {
	d.errs = append(d.errs, &SchemaMismatchError{Path: path, ExpectedShape: shape})
}

func (d *decoder) warn(path, format string, args ...any) {
	d.warnings = append(d.warnings, Warning{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (d *decoder) site(raw map[string]any) SiteConfig {
	var cfg SiteConfig

	d.unknownKeys("", raw, siteKeys)
	cfg.Title = d.required(raw, "title")
	cfg.Description = d.required(raw, "description")

	cfg.Lang = defaultLang
	if lang, ok := d.optionalString(raw, "", "lang"); ok && lang != "" {
		cfg.Lang = lang
	}

	if v, ok := raw["head"]; ok && v != nil {
		cfg.Head = d.head("head", v)
	}

	if v, ok := raw["themeConfig"]; ok && v != nil {
		theme, ok := asMap(v)
		if !ok {
			d.mismatch("themeConfig", shapeMapping)
		} else {
			cfg.Theme = d.theme("themeConfig", theme)
		}
	}

	return cfg
}

func (d *decoder) required(raw map[string]any, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		d.errs = append(d.errs, &MissingFieldError{Field: key})
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.mismatch(key, shapeString)
		return ""
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.errs = append(d.errs, &MissingFieldError{Field: key})
	}
	return s
}

func (d *decoder) head(path string, v any) []HeadTag {
	entries, ok := asSeq(v)
	if !ok {
		d.mismatch(path, shapeSequence)
		return nil
	}

	tags := make([]HeadTag, 0, len(entries))
	for i, entry := range entries {
		p := index(path, i)
		if tag, ok := d.headTag(p, entry); ok {
			tags = append(tags, tag)
		}
	}
	return tags
}

func (d *decoder) headTag(path string, v any) (HeadTag, bool) {
	var (
		name  any
		attrs any
	)

	if m, ok := asMap(v); ok {
		d.unknownKeys(path, m, headKeys)
		name, attrs = m["tagName"], m["attributes"]
	} else if tuple, ok := asSeq(v); ok && len(tuple) >= 1 && len(tuple) <= 2 {
		name = tuple[0]
		if len(tuple) == 2 {
			attrs = tuple[1]
		}
	} else {
		d.mismatch(path, shapeHeadTag)
		return HeadTag{}, false
	}

	tagName, ok := name.(string)
	if !ok || strings.TrimSpace(tagName) == "" {
		d.mismatch(field(path, "tagName"), shapeNonEmpty)
		return HeadTag{}, false
	}

	tag := HeadTag{TagName: strings.TrimSpace(tagName)}
	if attrs != nil {
		values, ok := d.stringMap(field(path, "attributes"), attrs)
		if !ok {
			return HeadTag{}, false
		}
		for _, key := range assetAttributes {
			if value, ok := values[key]; ok && value != "" {
				values[key] = NormalizePath(value)
			}
		}
		tag.Attributes = values
	}
	return tag, true
}

func (d *decoder) theme(path string, raw map[string]any) ThemeConfig {
	var theme ThemeConfig

	d.unknownKeys(path, raw, themeKeys)

	if logo, ok := d.optionalString(raw, path, "logo"); ok && logo != "" {
		theme.Logo = NormalizePath(logo)
	}

	if v, ok := raw["nav"]; ok && v != nil {
		theme.Nav = d.nav(field(path, "nav"), v)
	}
	if v, ok := raw["sidebar"]; ok && v != nil {
		theme.Sidebar = d.sidebar(field(path, "sidebar"), v)
	}
	if v, ok := raw["socialLinks"]; ok && v != nil {
		theme.SocialLinks = d.socialLinks(field(path, "socialLinks"), v)
	}
	if v, ok := raw["search"]; ok && v != nil {
		theme.Search = d.search(field(path, "search"), v)
	}
	if v, ok := raw["footer"]; ok && v != nil {
		theme.Footer = d.footer(field(path, "footer"), v)
	}
	if v, ok := raw["lastUpdated"]; ok && v != nil {
		theme.LastUpdated = d.lastUpdated(field(path, "lastUpdated"), v)
	}

	return theme
}

func (d *decoder) nav(path string, v any) []NavItem {
	entries, ok := asSeq(v)
	if !ok {
		d.mismatch(path, shapeSequence)
		return nil
	}

	items := make([]NavItem, 0, len(entries))
	labels := make(map[string]int, len(entries))
	for i, entry := range entries {
		p := index(path, i)
		item, ok := d.navItem(p, entry)
		if !ok {
			continue
		}
		if first, dup := labels[item.Text]; dup {
			d.warn(p, "nav label %q already used by %s", item.Text, index(path, first))
		} else {
			labels[item.Text] = i
		}
		items = append(items, item)
	}
	return items
}

func (d *decoder) navItem(path string, v any) (NavItem, bool) {
	m, ok := asMap(v)
	if !ok {
		d.mismatch(path, shapeNavEntry)
		return NavItem{}, false
	}
	d.unknownKeys(path, m, navKeys)

	text, ok := d.text(path, m)
	if !ok {
		return NavItem{}, false
	}

	rawLink, hasLink := m["link"]
	rawItems, hasItems := m["items"]
	hasLink = hasLink && rawLink != nil
	hasItems = hasItems && rawItems != nil
	if hasLink == hasItems {
		d.mismatch(path, shapeNavEntry)
		return NavItem{}, false
	}

	item := NavItem{Text: text}
	if hasLink {
		link, ok := rawLink.(string)
		if !ok || strings.TrimSpace(link) == "" {
			d.mismatch(field(path, "link"), shapeNonEmpty)
			return NavItem{}, false
		}
		item.Link = NormalizePath(link)
		return item, true
	}

	failures := len(d.errs)
	children := d.nav(field(path, "items"), rawItems)
	if len(d.errs) > failures {
		return NavItem{}, false
	}
	if len(children) == 0 {
		d.mismatch(field(path, "items"), "non-empty sequence of "+shapeNavEntry)
		return NavItem{}, false
	}
	item.Items = children
	return item, true
}

func (d *decoder) sidebar(path string, v any) []SidebarGroup {
	entries, ok := asSeq(v)
	if !ok {
		d.mismatch(path, shapeSequence)
		return nil
	}

	groups := make([]SidebarGroup, 0, len(entries))
	for i, entry := range entries {
		if group, ok := d.sidebarGroup(index(path, i), entry); ok {
			groups = append(groups, group)
		}
	}
	return groups
}

func (d *decoder) sidebarGroup(path string, v any) (SidebarGroup, bool) {
	m, ok := asMap(v)
	if !ok {
		d.mismatch(path, shapeSidebarGroup)
		return SidebarGroup{}, false
	}
	d.unknownKeys(path, m, groupKeys)

	text, ok := d.text(path, m)
	if !ok {
		return SidebarGroup{}, false
	}

	rawLink, hasLink := m["link"]
	rawItems, hasItems := m["items"]
	hasLink = hasLink && rawLink != nil
	hasItems = hasItems && rawItems != nil
	if hasLink == hasItems {
		d.mismatch(path, shapeSidebarGroup)
		return SidebarGroup{}, false
	}

	group := SidebarGroup{Text: text}
	if rawCollapsed, ok := m["collapsed"]; ok && rawCollapsed != nil {
		collapsed, ok := rawCollapsed.(bool)
		switch {
		case !ok:
			d.mismatch(field(path, "collapsed"), shapeBool)
		case hasLink:
			d.warn(field(path, "collapsed"), "collapsed has no effect on a link entry")
		default:
			group.Collapsed = &collapsed
		}
	}

	if hasLink {
		link, ok := rawLink.(string)
		if !ok || strings.TrimSpace(link) == "" {
			d.mismatch(field(path, "link"), shapeNonEmpty)
			return SidebarGroup{}, false
		}
		group.Link = NormalizePath(link)
		return group, true
	}

	entries, ok := asSeq(rawItems)
	if !ok {
		d.mismatch(field(path, "items"), shapeSequence)
		return SidebarGroup{}, false
	}
	if len(entries) == 0 {
		d.mismatch(field(path, "items"), "non-empty sequence of "+shapeSidebarItem)
		return SidebarGroup{}, false
	}

	group.Items = make([]SidebarItem, 0, len(entries))
	for i, entry := range entries {
		if item, ok := d.sidebarItem(index(field(path, "items"), i), entry); ok {
			group.Items = append(group.Items, item)
		}
	}
	return group, true
}

func (d *decoder) sidebarItem(path string, v any) (SidebarItem, bool) {
	m, ok := asMap(v)
	if !ok {
		d.mismatch(path, shapeSidebarItem)
		return SidebarItem{}, false
	}
	d.unknownKeys(path, m, itemKeys)

	text, ok := d.text(path, m)
	if !ok {
		return SidebarItem{}, false
	}

	link, ok := m["link"].(string)
	if !ok || strings.TrimSpace(link) == "" {
		d.mismatch(path, shapeSidebarItem)
		return SidebarItem{}, false
	}
	return SidebarItem{Text: text, Link: NormalizePath(link)}, true
}

func (d *decoder) socialLinks(path string, v any) []SocialLink {
	entries, ok := asSeq(v)
	if !ok {
		d.mismatch(path, shapeSequence)
		return nil
	}

	links := make([]SocialLink, 0, len(entries))
	for i, entry := range entries {
		p := index(path, i)
		m, ok := asMap(entry)
		if !ok {
			d.mismatch(p, shapeSocialLink)
			continue
		}
		d.unknownKeys(p, m, socialKeys)

		icon, iconOK := enumValue(d, field(p, "icon"), m["icon"], knownIcons)
		link, linkOK := m["link"].(string)
		if !linkOK {
			d.mismatch(field(p, "link"), shapeString)
		} else if !isAbsoluteURL(link) {
			d.errs = append(d.errs, &InvalidURLError{Field: field(p, "link"), Value: link})
			linkOK = false
		}
		if iconOK && linkOK {
			links = append(links, SocialLink{Icon: icon, Link: link})
		}
	}
	return links
}

func (d *decoder) search(path string, v any) *SearchConfig {
	m, ok := asMap(v)
	if !ok {
		d.mismatch(path, "{provider, options}")
		return nil
	}
	d.unknownKeys(path, m, searchKeys)

	provider, ok := enumValue(d, field(path, "provider"), m["provider"], knownProviders)
	if !ok {
		return nil
	}

	cfg := &SearchConfig{Provider: provider}
	if rawOptions, ok := m["options"]; ok && rawOptions != nil {
		options, ok := d.stringMap(field(path, "options"), rawOptions)
		if !ok {
			return nil
		}
		if len(options) > 0 {
			cfg.Options = options
		}
	}

	if provider == SearchExternal && len(cfg.Options) == 0 {
		d.mismatch(field(path, "options"), "non-empty mapping of provider options")
		return nil
	}
	return cfg
}

func (d *decoder) footer(path string, v any) *FooterConfig {
	m, ok := asMap(v)
	if !ok {
		d.mismatch(path, "{message, copyright}")
		return nil
	}
	d.unknownKeys(path, m, footerKeys)

	footer := &FooterConfig{}
	footer.Message, _ = d.optionalString(m, path, "message")
	footer.Copyright, _ = d.optionalString(m, path, "copyright")
	return footer
}

func (d *decoder) lastUpdated(path string, v any) *LastUpdatedConfig {
	cfg := &LastUpdatedConfig{
		Text: defaultLastUpdatedText,
		FormatOptions: FormatOptions{
			DateStyle: defaultDateTimeStyle,
			TimeStyle: defaultDateTimeStyle,
		},
	}

	if enabled, ok := v.(bool); ok {
		if !enabled {
			return nil
		}
		return cfg
	}

	m, ok := asMap(v)
	if !ok {
		d.mismatch(path, shapeLastUpdated)
		return nil
	}
	d.unknownKeys(path, m, lastUpdatedKeys)

	if text, ok := d.optionalString(m, path, "text"); ok && text != "" {
		cfg.Text = text
	}

	if rawFormat, ok := m["formatOptions"]; ok && rawFormat != nil {
		p := field(path, "formatOptions")
		format, ok := asMap(rawFormat)
		if !ok {
			d.mismatch(p, "{dateStyle, timeStyle}")
			return nil
		}
		d.unknownKeys(p, format, formatKeys)
		if raw, ok := format["dateStyle"]; ok && raw != nil {
			cfg.FormatOptions.DateStyle, _ = enumValue(d, field(p, "dateStyle"), raw, knownStyles)
		}
		if raw, ok := format["timeStyle"]; ok && raw != nil {
			cfg.FormatOptions.TimeStyle, _ = enumValue(d, field(p, "timeStyle"), raw, knownStyles)
		}
	}
	return cfg
}

// text reads the mandatory "text" label shared by nav and sidebar entries.
func (d *decoder) text(path string, m map[string]any) (string, bool) {
	text, ok := m["text"].(string)
	if !ok || strings.TrimSpace(text) == "" {
		d.mismatch(field(path, "text"), shapeNonEmpty)
		return "", false
	}
	return strings.TrimSpace(text), true
}

func (d *decoder) optionalString(m map[string]any, path, key string) (string, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", false
	}
	s, ok := v.(string)
	if !ok {
		d.mismatch(field(path, key), shapeString)
		return "", false
	}
	return strings.TrimSpace(s), true
}

func (d *decoder) stringMap(path string, v any) (map[string]string, bool) {
	m, ok := asMap(v)
	if !ok {
		d.mismatch(path, shapeStringMap)
		return nil, false
	}

	out := make(map[string]string, len(m))
	valid := true
	for _, key := range sortedKeys(m) {
		s, ok := scalarString(m[key])
		if !ok {
			d.mismatch(field(path, key), shapeString)
			valid = false
			continue
		}
		out[key] = s
	}
	return out, valid
}

func (d *decoder) unknownKeys(path string, m map[string]any, known []string) {
	for _, key := range sortedKeys(m) {
		if !slices.Contains(known, key) {
			d.warn(field(path, key), "unknown field ignored")
		}
	}
}

func enumValue[T ~string](d *decoder, path string, v any, known []T) (T, bool) {
	s, ok := v.(string)
	if ok && slices.Contains(known, T(s)) {
		return T(s), true
	}

	names := make([]string, len(known))
	for i, k := range known {
		names[i] = string(k)
	}
	d.mismatch(path, "one of "+strings.Join(names, ", "))
	return "", false
}

// asMap accepts any string-keyed mapping produced by the JSON, YAML and TOML
// decoders or written as a Go literal.
func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case nil:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return nil, false
	}

	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, ok := iter.Key().Interface().(string)
		if !ok {
			return nil, false
		}
		out[key] = iter.Value().Interface()
	}
	return out, true
}

func asSeq(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case nil, string:
		return nil, false
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}

	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case bool:
		return strconv.FormatBool(s), true
	case int, int64, uint64, float64:
		return fmt.Sprint(s), true
	}
	return "", false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func field(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func index(path string, i int) string {
	return path + "[" + strconv.Itoa(i) + "]"
}
