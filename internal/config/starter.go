package config

import "fmt"

// Starter renders the .pyship.yaml written by `pyship init`, seeded with
// values detected from the tree under root. Commented keys document the
// rest of the settings surface.
func Starter(root string) string {
	p := DefaultProject(root)
	pkg := p.Package
	if pkg == "" {
		pkg = p.Name
	}
	return fmt.Sprintf(`# pyship project settings. Every key is optional; missing keys fall
# back to detection against the project tree.

name: %s
package: %s
tests: %s

# Interpreter used for "python -m" fallbacks (default: python3, then python).
#python: python3

# Extra arguments for every pytest run.
pytest_args: [-v]

# Disable individual checkers of the lint step.
#lint:
#  black: false
#  flake8: false
#  mypy: false

# Shell lines run before/after a step (clean, lint, test, build, publish).
#hooks:
#  build:
#    before:
#      - python scripts/generate_version.py
#  publish:
#    after:
#      - git tag v$(python -c 'import %s; print(%s.__version__)')
`, p.Name, pkg, p.Tests, p.Name, p.Name)
}
