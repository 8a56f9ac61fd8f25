// Package pypi models the package indexes a workflow publishes to and the
// naming rules those indexes enforce.
package pypi

// Index identifies a package index and how to authenticate against it.
type Index struct {
	// Name is the short identifier used on the command line.
	Name string
	// Display is the human-facing index name.
	Display string
	// APIBase is the root of the index JSON API.
	APIBase string
	// UploadURL is passed to twine as --repository-url.
	UploadURL string
	// TokenEnv is the environment variable carrying the API token.
	TokenEnv string
	// TokenURL is the page where API tokens are created.
	TokenURL string
}

var (
	// PyPI is the production index.
	PyPI = Index{
		Name:      "pypi",
		Display:   "PyPI",
		APIBase:   "https://pypi.org",
		UploadURL: "https://upload.pypi.org/legacy/",
		TokenEnv:  "PYPI_TOKEN",
		TokenURL:  "https://pypi.org/manage/account/token/",
	}
	// TestPyPI is the staging index for rehearsing releases.
	TestPyPI = Index{
		Name:      "testpypi",
		Display:   "TestPyPI",
		APIBase:   "https://test.pypi.org",
		UploadURL: "https://test.pypi.org/legacy/",
		TokenEnv:  "TEST_PYPI_TOKEN",
		TokenURL:  "https://test.pypi.org/manage/account/token/",
	}
)

// Indexes returns the known indexes.
func Indexes() []Index {
	return []Index{PyPI, TestPyPI}
}

// IndexByName resolves a command line index name.
func IndexByName(name string) (Index, bool) {
	for _, idx := range Indexes() {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}
