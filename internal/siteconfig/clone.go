package siteconfig

import "maps"

// Clone returns a deep copy of c. Nil and empty collections keep their
// distinction.
func (c SiteConfig) Clone() SiteConfig {
	out := c
	if c.Head != nil {
		out.Head = make([]HeadTag, len(c.Head))
		for i, tag := range c.Head {
			out.Head[i] = HeadTag{TagName: tag.TagName, Attributes: maps.Clone(tag.Attributes)}
		}
	}
	out.Theme = c.Theme.Clone()
	return out
}

// Clone returns a deep copy of t.
func (t ThemeConfig) Clone() ThemeConfig {
	out := t
	out.Nav = cloneNav(t.Nav)

	if t.Sidebar != nil {
		out.Sidebar = make([]SidebarGroup, len(t.Sidebar))
		for i, group := range t.Sidebar {
			g := group
			if group.Collapsed != nil {
				collapsed := *group.Collapsed
				g.Collapsed = &collapsed
			}
			if group.Items != nil {
				g.Items = append([]SidebarItem{}, group.Items...)
			}
			out.Sidebar[i] = g
		}
	}

	if t.SocialLinks != nil {
		out.SocialLinks = append([]SocialLink{}, t.SocialLinks...)
	}
	if t.Search != nil {
		search := *t.Search
		search.Options = maps.Clone(t.Search.Options)
		out.Search = &search
	}
	if t.Footer != nil {
		footer := *t.Footer
		out.Footer = &footer
	}
	if t.LastUpdated != nil {
		lastUpdated := *t.LastUpdated
		out.LastUpdated = &lastUpdated
	}
	return out
}

func cloneNav(items []NavItem) []NavItem {
	if items == nil {
		return nil
	}
	out := make([]NavItem, len(items))
	for i, item := range items {
		out[i] = NavItem{Text: item.Text, Link: item.Link, Items: cloneNav(item.Items)}
	}
	return out
}
