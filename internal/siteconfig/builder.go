package siteconfig

import (
	"errors"

	"go.uber.org/zap"
)

// Report is the outcome of a successful build.
type Report struct {
	Config   SiteConfig
	Warnings []Warning
}

// Builder turns raw declarations into validated SiteConfig values.
type Builder struct {
	logger *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger routes build warnings to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder constructs a Builder. Without WithLogger warnings are discarded.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build validates and normalises raw. It returns either a fully valid
// configuration or an error joining every finding; it never returns a
// partially validated value.
func (b *Builder) Build(raw map[string]any) (SiteConfig, error) {
	report, err := b.BuildReport(raw)
	if err != nil {
		return SiteConfig{}, err
	}
	return report.Config, nil
}

// BuildReport is Build plus the non-fatal warnings found along the way.
func (b *Builder) BuildReport(raw map[string]any) (Report, error) {
	d := &decoder{}
	cfg := d.site(raw)

	errs := d.errs
	if err := ValidateSidebarUniqueness(cfg.Theme.Sidebar); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Report{}, errors.Join(errs...)
	}

	for _, w := range d.warnings {
		b.logger.Warn("site config warning", zap.String("path", w.Path), zap.String("message", w.Message))
	}
	b.logger.Debug("site config built",
		zap.String("title", cfg.Title),
		zap.Int("nav_items", len(cfg.Theme.Nav)),
		zap.Int("sidebar_groups", len(cfg.Theme.Sidebar)),
		zap.Int("warnings", len(d.warnings)),
	)

	return Report{Config: cfg, Warnings: d.warnings}, nil
}

// Build validates raw with a default Builder.
func Build(raw map[string]any) (SiteConfig, error) {
	return NewBuilder().Build(raw)
}
