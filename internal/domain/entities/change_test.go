package entities_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thoth-station/kebechet/internal/domain/entities"
)

func TestUpdateBranchName(t *testing.T) {
	t.Parallel()

	t.Run("should derive the branch name from package and version", func(t *testing.T) {
		t.Parallel()

		// given
		name := "requests"
		version := "2.25.0"

		// when
		branch := entities.UpdateBranchName(name, version)

		// then
		assert.Equal(t, "kebechet-requests-2.25.0", branch)
	})

	t.Run("should be stable across invocations", func(t *testing.T) {
		t.Parallel()

		// given
		name := "requests"
		version := "2.25.0"

		// when
		first := entities.UpdateBranchName(name, version)
		second := entities.UpdateBranchName(name, version)

		// then
		assert.Equal(t, first, second)
	})

	t.Run("should map distinct versions to distinct branches", func(t *testing.T) {
		t.Parallel()

		// given
		name := "requests"

		// when
		older := entities.UpdateBranchName(name, "2.20.0")
		newer := entities.UpdateBranchName(name, "2.25.0")

		// then
		assert.NotEqual(t, older, newer)
	})
}

func TestDependencyDeltaBranchName(t *testing.T) {
	t.Parallel()

	t.Run("should use the target version of the delta", func(t *testing.T) {
		t.Parallel()

		// given
		delta := entities.DependencyDelta{
			Name:       "requests",
			OldVersion: "2.20.0",
			NewVersion: "2.25.0",
		}

		// when
		branch := delta.BranchName()

		// then
		assert.Equal(t, "kebechet-requests-2.25.0", branch)
	})
}

func TestBranchPrefix(t *testing.T) {
	t.Parallel()

	t.Run("should prefix every branch the engine owns", func(t *testing.T) {
		t.Parallel()

		// given
		branches := []string{
			entities.UpdateBranchName("requests", "2.25.0"),
			entities.InitialLockBranch,
			entities.RelockBranch,
		}

		// when
		prefix := entities.BranchPrefix()

		// then
		for _, branch := range branches {
			assert.True(t, strings.HasPrefix(branch, prefix), branch)
		}
	})
}

func TestReleaseBranchName(t *testing.T) {
	t.Parallel()

	t.Run("should stay outside the reaper's prefix", func(t *testing.T) {
		t.Parallel()

		// when
		branch := entities.ReleaseBranchName("1.2.0")

		// then
		assert.Equal(t, "v1.2.0", branch)
		assert.False(t, strings.HasPrefix(branch, entities.BranchPrefix()))
	})
}
