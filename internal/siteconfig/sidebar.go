package siteconfig

import "errors"

// ValidateSidebarUniqueness walks every group and item of sidebar and reports
// each normalised link that is declared by more than one item. A standalone
// link entry counts as an item of a group named after its own text. Findings
// are joined in order of first declaration.
func ValidateSidebarUniqueness(sidebar []SidebarGroup) error {
	groupsByLink := make(map[string][]string)
	var order []string

	record := func(raw, group string) {
		link := NormalizePath(raw)
		if _, seen := groupsByLink[link]; !seen {
			order = append(order, link)
		}
		groupsByLink[link] = append(groupsByLink[link], group)
	}

	for _, group := range sidebar {
		if group.Link != "" {
			record(group.Link, group.Text)
		}
		for _, item := range group.Items {
			record(item.Link, group.Text)
		}
	}

	var errs []error
	for _, link := range order {
		if groups := groupsByLink[link]; len(groups) > 1 {
			errs = append(errs, &DuplicateLinkError{Link: link, Groups: groups})
		}
	}
	return errors.Join(errs...)
}
