//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	testkit "github.com/rios0rios0/testkit/pkg/test"

	"github.com/thoth-station/kebechet/internal/domain/entities"
)

// DeltaBuilder helps create test dependency deltas with a fluent interface.
type DeltaBuilder struct {
	*testkit.BaseBuilder
	name       string
	oldVersion string
	newVersion string
	dev        bool
}

// NewDeltaBuilder creates a new delta builder with sensible defaults.
func NewDeltaBuilder() *DeltaBuilder {
	return &DeltaBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		name:        "requests",
		oldVersion:  "2.20.0",
		newVersion:  "2.25.0",
		dev:         false,
	}
}

// WithName sets the package name.
func (b *DeltaBuilder) WithName(name string) *DeltaBuilder {
	b.name = name
	return b
}

// WithOldVersion sets the version the package is currently locked at.
func (b *DeltaBuilder) WithOldVersion(version string) *DeltaBuilder {
	b.oldVersion = version
	return b
}

// WithNewVersion sets the version the package resolves to now.
func (b *DeltaBuilder) WithNewVersion(version string) *DeltaBuilder {
	b.newVersion = version
	return b
}

// WithDev marks the package as a dev-group dependency.
func (b *DeltaBuilder) WithDev(dev bool) *DeltaBuilder {
	b.dev = dev
	return b
}

// Build creates the delta (satisfies testkit.Builder interface).
func (b *DeltaBuilder) Build() interface{} {
	return b.BuildDelta()
}

// BuildDelta creates the delta with a concrete return type.
func (b *DeltaBuilder) BuildDelta() entities.DependencyDelta {
	return entities.DependencyDelta{
		Name:       b.name,
		OldVersion: b.oldVersion,
		NewVersion: b.newVersion,
		Dev:        b.dev,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *DeltaBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.name = "requests"
	b.oldVersion = "2.20.0"
	b.newVersion = "2.25.0"
	b.dev = false
	return b
}

// Clone creates a deep copy of the DeltaBuilder.
func (b *DeltaBuilder) Clone() testkit.Builder {
	return &DeltaBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		name:        b.name,
		oldVersion:  b.oldVersion,
		newVersion:  b.newVersion,
		dev:         b.dev,
	}
}
