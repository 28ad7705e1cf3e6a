package siteconfig

import (
	"fmt"
	"reflect"

	"dario.cat/mergo"
)

// Reconcile applies next over previous. Fields set in next win; fields next
// leaves unset are kept from previous. The root object and the theme are
// reconciled field by field, while every leaf subtree (head, nav, sidebar,
// social links, search, footer, last-updated) is taken whole from whichever
// side provides it and is never spliced item by item.
//
// An explicitly empty list in next (as opposed to an absent one) replaces the
// list from previous.
func Reconcile(previous, next SiteConfig) (SiteConfig, error) {
	merged := next.Clone()
	if err := mergo.Merge(&merged, previous.Clone(), mergo.WithTransformers(wholeSubtrees{})); err != nil {
		return SiteConfig{}, fmt.Errorf("reconcile site config: %w", err)
	}
	return merged, nil
}

var atomicTypes = []reflect.Type{
	reflect.TypeOf([]HeadTag(nil)),
	reflect.TypeOf([]NavItem(nil)),
	reflect.TypeOf([]SidebarGroup(nil)),
	reflect.TypeOf([]SocialLink(nil)),
	reflect.TypeOf((*SearchConfig)(nil)),
	reflect.TypeOf((*FooterConfig)(nil)),
	reflect.TypeOf((*LastUpdatedConfig)(nil)),
}

// wholeSubtrees stops mergo from descending into leaf subtrees. mergo only
// consults transformers for non-nil destinations, so a subtree present in
// next is kept untouched and an absent one falls through to the default
// fill-from-previous behaviour.
type wholeSubtrees struct{}

func (wholeSubtrees) Transformer(t reflect.Type) func(dst, src reflect.Value) error {
	for _, atomic := range atomicTypes {
		if t == atomic {
			return keepDestination
		}
	}
	return nil
}

func keepDestination(_, _ reflect.Value) error {
	return nil
}
