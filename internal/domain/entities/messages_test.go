package entities_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/thoth-station/kebechet/internal/domain/entities"
)

func newReport() entities.ResolverFailureReport {
	return entities.NewResolverFailureReport(
		"abc123",
		"thoth-station/example",
		&entities.ResolverError{
			Command: "pipenv update --dev",
			Stdout:  "resolving...",
			Stderr:  "No matching distribution found",
		},
	)
}

func TestNewResolverFailureReport(t *testing.T) {
	t.Parallel()

	t.Run("should carry the resolver diagnostics", func(t *testing.T) {
		t.Parallel()

		// given / when
		report := newReport()

		// then
		assert.Equal(t, "abc123", report.SHA)
		assert.Equal(t, "thoth-station/example", report.Slug)
		assert.Equal(t, "pipenv update --dev", report.Command)
		assert.Equal(t, "resolving...", report.Stdout)
		assert.Equal(t, "No matching distribution found", report.Stderr)
	})
}

func TestRenderUpdateAllFailure(t *testing.T) {
	t.Parallel()

	t.Run("should embed the SHA and the full diagnostics", func(t *testing.T) {
		t.Parallel()

		// given
		report := newReport()

		// when
		body := entities.RenderUpdateAllFailure(report)

		// then
		assert.Contains(t, body, "abc123")
		assert.Contains(t, body, "pipenv update --dev")
		assert.Contains(t, body, "No matching distribution found")
		assert.Contains(t, body, "automatically closed by bot")
	})
}

func TestRenderInitialLockFailure(t *testing.T) {
	t.Parallel()

	t.Run("should name the manifest the lock was attempted from", func(t *testing.T) {
		t.Parallel()

		// given
		report := newReport()
		report.File = "Pipfile"

		// when
		body := entities.RenderInitialLockFailure(report)

		// then
		assert.Contains(t, body, "Pipfile")
		assert.Contains(t, body, "abc123")
	})
}

func TestRenderRefreshComment(t *testing.T) {
	t.Parallel()

	t.Run("should reference the current SHA so reruns can detect it", func(t *testing.T) {
		t.Parallel()

		// given
		report := newReport()

		// when
		comment := entities.RenderRefreshComment(report)

		// then
		assert.Contains(t, comment, "abc123")
		assert.Contains(t, comment, "still failing")
	})
}

func TestRenderCloseComment(t *testing.T) {
	t.Parallel()

	t.Run("should reference the SHA the failure stopped applying at", func(t *testing.T) {
		t.Parallel()

		// when
		comment := entities.RenderCloseComment("abc123")

		// then
		assert.Contains(t, comment, "no longer relevant")
		assert.Contains(t, comment, "abc123")
	})
}

func TestRenderRebaseComment(t *testing.T) {
	t.Parallel()

	t.Run("should reference the SHA the branch was rebased onto", func(t *testing.T) {
		t.Parallel()

		// when
		comment := entities.RenderRebaseComment("abc123")

		// then
		assert.Contains(t, comment, "rebased")
		assert.Contains(t, comment, "abc123")
	})
}

func TestRenderUpdateBody(t *testing.T) {
	t.Parallel()

	t.Run("should reference both versions", func(t *testing.T) {
		t.Parallel()

		// when
		body := entities.RenderUpdateBody("requests", "2.20.0", "2.25.0")

		// then
		assert.Contains(t, body, "requests")
		assert.Contains(t, body, "2.20.0")
		assert.Contains(t, body, "2.25.0")
	})
}

func TestRenderRelockBody(t *testing.T) {
	t.Parallel()

	t.Run("should link the sentinel issue", func(t *testing.T) {
		t.Parallel()

		// when
		body := entities.RenderRelockBody(42)

		// then
		assert.Equal(t, "Fixes: #42", body)
	})
}

func TestParseReleaseRequest(t *testing.T) {
	t.Parallel()

	t.Run("should extract the version from a release request title", func(t *testing.T) {
		t.Parallel()

		// when
		requested, ok := entities.ParseReleaseRequest("  1.2.0 release ")

		// then
		assert.True(t, ok)
		assert.Equal(t, "1.2.0", requested)
	})

	t.Run("should reject titles that are not two tokens ending in release", func(t *testing.T) {
		t.Parallel()

		for _, title := range []string{
			"release",
			"1.2.0",
			"Please release version 1.2.0",
			"1.2.0 released",
			"",
		} {
			// when
			_, ok := entities.ParseReleaseRequest(title)

			// then
			assert.False(t, ok, title)
		}
	})
}

func TestReleaseTitle(t *testing.T) {
	t.Parallel()

	t.Run("should name the released version", func(t *testing.T) {
		t.Parallel()

		// when
		title := entities.ReleaseTitle("1.2.0")

		// then
		assert.Equal(t, "Release of version 1.2.0", title)
	})
}

func TestRenderReleaseBody(t *testing.T) {
	t.Parallel()

	t.Run("should link the requesting issue", func(t *testing.T) {
		t.Parallel()

		// when
		body := entities.RenderReleaseBody(7)

		// then
		assert.Equal(t, "Fixes: #7", body)
	})
}

func TestRenderReleaseFailureBody(t *testing.T) {
	t.Parallel()

	t.Run("should reference the requesting issue", func(t *testing.T) {
		t.Parallel()

		// when
		body := entities.RenderReleaseFailureBody(7)

		// then
		assert.Contains(t, body, "cannot be performed")
		assert.Contains(t, body, "Related: #7")
	})
}

func TestCommitMessageUpdate(t *testing.T) {
	t.Parallel()

	t.Run("should name the package and both versions", func(t *testing.T) {
		t.Parallel()

		// when
		message := entities.CommitMessageUpdate("requests", "2.20.0", "2.25.0")

		// then
		assert.Equal(t,
			"Automatic update of dependency requests from 2.20.0 to 2.25.0", message)
	})
}
