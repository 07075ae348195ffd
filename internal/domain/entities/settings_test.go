package entities_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoth-station/kebechet/internal/domain/entities"
)

//nolint:tparallel // some subtests use t.Setenv which is incompatible with t.Parallel on parent
func TestResolveToken(t *testing.T) {
	t.Run("should return empty string for empty input", func(t *testing.T) {
		t.Parallel()

		// given
		raw := ""

		// when
		result := entities.ResolveToken(raw)

		// then
		assert.Empty(t, result)
	})

	t.Run("should return inline token unchanged", func(t *testing.T) {
		t.Parallel()

		// given
		raw := "ghp_inline-token"

		// when
		result := entities.ResolveToken(raw)

		// then
		assert.Equal(t, "ghp_inline-token", result)
	})

	t.Run("should expand environment variable references", func(t *testing.T) {
		// given
		t.Setenv("KEBECHET_TEST_TOKEN", "ghp_from-env")
		raw := "${KEBECHET_TEST_TOKEN}"

		// when
		result := entities.ResolveToken(raw)

		// then
		assert.Equal(t, "ghp_from-env", result)
	})

	t.Run("should expand unset variables to empty string", func(t *testing.T) {
		t.Parallel()

		// given
		raw := "${KEBECHET_TEST_DOES_NOT_EXIST}"

		// when
		result := entities.ResolveToken(raw)

		// then
		assert.Empty(t, result)
	})

	t.Run("should read the token from a file when the value is a path", func(t *testing.T) {
		t.Parallel()

		// given
		dir := t.TempDir()
		path := filepath.Join(dir, "token")
		require.NoError(t, os.WriteFile(path, []byte("ghp_from-file\n"), 0o600))

		// when
		result := entities.ResolveToken(path)

		// then
		assert.Equal(t, "ghp_from-file", result)
	})
}

//nolint:tparallel // some subtests use t.Setenv which is incompatible with t.Parallel on parent
func TestNewSettings(t *testing.T) {
	writeConfig := func(t *testing.T, content string) string {
		t.Helper()
		path := filepath.Join(t.TempDir(), "kebechet.yaml")
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		return path
	}

	t.Run("should parse a full configuration", func(t *testing.T) {
		// given
		t.Setenv("KEBECHET_TEST_GL_TOKEN", "glpat-secret")
		path := writeConfig(t, `
repositories:
  - slug: thoth-station/example
    service_type: gitlab
    service_url: https://gitlab.example.com
    token: ${KEBECHET_TEST_GL_TOKEN}
    branch: main
    tls_verify: false
    managers:
      - name: update
        labels: [bot]
      - name: info
`)

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.NoError(t, err)
		require.Len(t, settings.Repositories, 1)
		repo := settings.Repositories[0]
		assert.Equal(t, "thoth-station/example", repo.Slug)
		assert.Equal(t, "gitlab", repo.ServiceType)
		assert.Equal(t, "https://gitlab.example.com", repo.ServiceURL)
		assert.Equal(t, "glpat-secret", repo.Token)
		assert.Equal(t, "main", repo.Branch)
		assert.False(t, repo.VerifyTLS())
		require.Len(t, repo.Managers, 2)
		assert.Equal(t, "update", repo.Managers[0].Name)
		assert.Equal(t, []string{"bot"}, repo.Managers[0].Labels)
		assert.Equal(t, "info", repo.Managers[1].Name)
	})

	t.Run("should default service type, branch and TLS verification", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, `
repositories:
  - slug: thoth-station/example
    token: ghp_inline
    managers:
      - name: update
`)

		// when
		settings, err := entities.NewSettings(path)

		// then
		require.NoError(t, err)
		repo := settings.Repositories[0]
		assert.Equal(t, "github", repo.ServiceType)
		assert.Equal(t, "master", repo.Branch)
		assert.True(t, repo.VerifyTLS())
	})

	t.Run("should fail when no repository is configured", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, "repositories: []\n")

		// when
		_, err := entities.NewSettings(path)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least one repository")
	})

	t.Run("should fail when the slug is missing", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, `
repositories:
  - token: ghp_inline
    managers:
      - name: update
`)

		// when
		_, err := entities.NewSettings(path)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "slug is required")
	})

	t.Run("should fail on unknown service types", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, `
repositories:
  - slug: thoth-station/example
    service_type: bitbucket
    token: ghp_inline
    managers:
      - name: update
`)

		// when
		_, err := entities.NewSettings(path)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not supported")
	})

	t.Run("should fail when the token resolves to empty", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, `
repositories:
  - slug: thoth-station/example
    managers:
      - name: update
`)

		// when
		_, err := entities.NewSettings(path)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "token is required")
	})

	t.Run("should fail when no manager is configured", func(t *testing.T) {
		t.Parallel()

		// given
		path := writeConfig(t, `
repositories:
  - slug: thoth-station/example
    token: ghp_inline
`)

		// when
		_, err := entities.NewSettings(path)

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "managers")
	})

	t.Run("should fail when the file does not exist", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := entities.NewSettings(filepath.Join(t.TempDir(), "missing.yaml"))

		// then
		require.Error(t, err)
	})
}

//nolint:paralleltest // t.Setenv and t.Chdir are incompatible with t.Parallel
func TestFindConfigFile(t *testing.T) {
	t.Run("should prefer the KEBECHET_CONFIG environment variable", func(t *testing.T) {
		// given
		dir := t.TempDir()
		fromEnv := filepath.Join(dir, "custom.yaml")
		require.NoError(t, os.WriteFile(fromEnv, []byte("repositories: []\n"), 0o600))
		t.Setenv("KEBECHET_CONFIG", fromEnv)
		t.Chdir(dir)
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, ".kebechet.yaml"), []byte("repositories: []\n"), 0o600))

		// when
		path, err := entities.FindConfigFile()

		// then
		require.NoError(t, err)
		assert.Equal(t, fromEnv, path)
	})

	t.Run("should prefer the hidden file in the working directory", func(t *testing.T) {
		// given
		t.Setenv("KEBECHET_CONFIG", "")
		dir := t.TempDir()
		t.Chdir(dir)
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, ".kebechet.yaml"), []byte("repositories: []\n"), 0o600))
		require.NoError(t, os.WriteFile(
			filepath.Join(dir, "kebechet.yaml"), []byte("repositories: []\n"), 0o600))

		// when
		path, err := entities.FindConfigFile()

		// then
		require.NoError(t, err)
		assert.Equal(t, ".kebechet.yaml", path)
	})
}

func TestNewProject(t *testing.T) {
	t.Parallel()

	t.Run("should split the slug into owner and name", func(t *testing.T) {
		t.Parallel()

		// when
		project, err := entities.NewProject(
			"thoth-station/example", "github", "", "main")

		// then
		require.NoError(t, err)
		assert.Equal(t, "thoth-station", project.Owner)
		assert.Equal(t, "example", project.Name)
		assert.Equal(t, "main", project.DefaultBranch)
	})

	t.Run("should default the branch to master", func(t *testing.T) {
		t.Parallel()

		// when
		project, err := entities.NewProject("thoth-station/example", "github", "", "")

		// then
		require.NoError(t, err)
		assert.Equal(t, "master", project.DefaultBranch)
	})

	t.Run("should reject slugs without an owner or name", func(t *testing.T) {
		t.Parallel()

		for _, slug := range []string{"", "just-a-name", "/name", "owner/"} {
			// when
			_, err := entities.NewProject(slug, "github", "", "")

			// then
			require.Error(t, err, slug)
		}
	})
}
