package update //nolint:testpackage // tests unexported functions

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thoth-station/kebechet/internal/domain/entities"
)

const testPipfile = `[[source]]
url = "https://pypi.org/simple"
verify_ssl = true
name = "pypi"

[packages]
requests = "*"
Django = ">=2.0"

[dev-packages]
pytest = "*"
`

const testPipfileLock = `{
    "_meta": {"hash": {"sha256": "deadbeef"}},
    "default": {
        "requests": {"version": "==2.20.0"},
        "django": {"version": "==2.2.0"},
        "idna": {"version": "==2.10"}
    },
    "develop": {
        "pytest": {"version": "==5.0.0"}
    }
}`

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func TestDetectFlavor(t *testing.T) {
	t.Parallel()

	t.Run("should pick the Pipfile flavor when a Pipfile exists", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writeFiles(t, map[string]string{pipfileName: testPipfile})

		// when / then
		assert.Equal(t, flavorPipenv, detectFlavor(dir))
	})

	t.Run("should pick the requirements flavor from requirements.in", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writeFiles(t, map[string]string{requirementsInName: "requests\n"})

		// when / then
		assert.Equal(t, flavorRequirements, detectFlavor(dir))
	})

	t.Run("should prefer a Pipfile over requirements files", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writeFiles(t, map[string]string{
			pipfileName:        testPipfile,
			requirementsInName: "requests\n",
		})

		// when / then
		assert.Equal(t, flavorPipenv, detectFlavor(dir))
	})

	t.Run("should report no management for an empty directory", func(t *testing.T) {
		t.Parallel()

		// given / when / then
		assert.Equal(t, flavorNone, detectFlavor(t.TempDir()))
	})
}

func TestReadFullSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("should read every locked package with stripped operators", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writeFiles(t, map[string]string{pipfileLockName: testPipfileLock})

		// when
		snapshot, err := readFullSnapshot(dir)

		// then
		require.NoError(t, err)
		assert.Len(t, snapshot, 4)
		assert.Equal(t, entities.PackageVersion{Version: "2.20.0"}, snapshot["requests"])
		assert.Equal(t, entities.PackageVersion{Version: "2.10"}, snapshot["idna"])
		assert.Equal(t, entities.PackageVersion{Version: "5.0.0", Dev: true}, snapshot["pytest"])
	})

	t.Run("should fail with a parse error when the lock is absent", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := readFullSnapshot(t.TempDir())

		// then
		var parseErr *entities.ManifestParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, pipfileLockName, parseErr.File)
	})

	t.Run("should fail with a parse error on malformed JSON", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writeFiles(t, map[string]string{pipfileLockName: "{not json"})

		// when
		_, err := readFullSnapshot(dir)

		// then
		var parseErr *entities.ManifestParseError
		require.ErrorAs(t, err, &parseErr)
	})
}

func TestReadDirectSnapshot(t *testing.T) {
	t.Parallel()

	t.Run("should resolve declared packages to their locked versions", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writeFiles(t, map[string]string{
			pipfileName:     testPipfile,
			pipfileLockName: testPipfileLock,
		})

		// when
		snapshot, err := readDirectSnapshot(dir)

		// then
		require.NoError(t, err)
		// idna is locked but not declared, so it is not a direct dependency.
		assert.Len(t, snapshot, 3)
		assert.Equal(t, entities.PackageVersion{Version: "2.20.0"}, snapshot["requests"])
		assert.Equal(t, entities.PackageVersion{Version: "2.2.0"}, snapshot["django"])
		assert.Equal(t, entities.PackageVersion{Version: "5.0.0", Dev: true}, snapshot["pytest"])
	})

	t.Run("should fail when a declared package is missing from the lock", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writeFiles(t, map[string]string{
			pipfileName:     testPipfile,
			pipfileLockName: `{"default": {}, "develop": {}}`,
		})

		// when
		_, err := readDirectSnapshot(dir)

		// then
		var internalErr *entities.InternalError
		require.ErrorAs(t, err, &internalErr)
	})
}

func TestParsePinnedLines(t *testing.T) {
	t.Parallel()

	t.Run("should parse pins and skip comments, blanks and options", func(t *testing.T) {
		t.Parallel()

		// given
		content := "# frozen by pipenv\n\nrequests==2.20.0\n-i https://pypi.org/simple\nIdna==2.10\n"

		// when
		snapshot, err := parsePinnedLines(content, requirementsTxtName)

		// then
		require.NoError(t, err)
		assert.Len(t, snapshot, 2)
		assert.Equal(t, "2.20.0", snapshot["requests"].Version)
		assert.Equal(t, "2.10", snapshot["idna"].Version)
	})

	t.Run("should drop extras and environment markers from the pin", func(t *testing.T) {
		t.Parallel()

		// given
		content := "requests[security]==2.20.0 ; python_version >= \"3.6\"\n"

		// when
		snapshot, err := parsePinnedLines(content, requirementsTxtName)

		// then
		require.NoError(t, err)
		assert.Equal(t, "2.20.0", snapshot["requests"].Version)
	})

	t.Run("should fail on a line without a pinned version", func(t *testing.T) {
		t.Parallel()

		// given
		content := "requests>=2.0\n"

		// when
		_, err := parsePinnedLines(content, requirementsTxtName)

		// then
		var parseErr *entities.ManifestParseError
		require.ErrorAs(t, err, &parseErr)
		assert.Equal(t, requirementsTxtName, parseErr.File)
	})
}

func TestReadManifestNames(t *testing.T) {
	t.Parallel()

	t.Run("should strip constraints and extras from declared names", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writeFiles(t, map[string]string{
			requirementsInName: "# direct deps\nrequests>=2.0\nDjango\npytest~=5.0\nuvicorn[standard]==0.13\n",
		})

		// when
		names, err := readManifestNames(dir)

		// then
		require.NoError(t, err)
		assert.Equal(t, map[string]bool{
			"requests": true,
			"django":   true,
			"pytest":   true,
			"uvicorn":  true,
		}, names)
	})

	t.Run("should fail with a parse error when the manifest is absent", func(t *testing.T) {
		t.Parallel()

		// when
		_, err := readManifestNames(t.TempDir())

		// then
		var parseErr *entities.ManifestParseError
		require.ErrorAs(t, err, &parseErr)
	})
}

func TestReadRequirementsDirect(t *testing.T) {
	t.Parallel()

	t.Run("should restrict the pins to the declared packages", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writeFiles(t, map[string]string{
			requirementsInName:  "requests\n",
			requirementsTxtName: "requests==2.20.0\nidna==2.10\n",
		})

		// when
		snapshot, err := readRequirementsDirect(dir)

		// then
		require.NoError(t, err)
		assert.Len(t, snapshot, 1)
		assert.Equal(t, "2.20.0", snapshot["requests"].Version)
	})

	t.Run("should leave out declared packages that were never pinned", func(t *testing.T) {
		t.Parallel()

		// given
		dir := writeFiles(t, map[string]string{
			requirementsInName:  "requests\nbrand-new\n",
			requirementsTxtName: "requests==2.20.0\n",
		})

		// when
		snapshot, err := readRequirementsDirect(dir)

		// then
		require.NoError(t, err)
		assert.Len(t, snapshot, 1)
		assert.NotContains(t, snapshot, "brand-new")
	})
}
