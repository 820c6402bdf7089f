package editor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/arbor/pkg/domain"
)

// Path addresses a node by the child indexes leading to it from the root.
// The empty path is the root.
type Path []int

// ParsePath reads "root", "0.2.1" or "root.0.2.1".
func ParsePath(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == domain.RootPath {
		return Path{}, nil
	}
	s = strings.TrimPrefix(s, domain.RootPath+".")

	parts := strings.Split(s, ".")
	p := make(Path, 0, len(parts))
	for _, part := range parts {
		i, err := strconv.Atoi(part)
		if err != nil || i < 0 {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPath, s)
		}
		p = append(p, i)
	}
	return p, nil
}

// String renders the path in the dotted form accepted by ParsePath.
func (p Path) String() string {
	if len(p) == 0 {
		return domain.RootPath
	}
	parts := make([]string, len(p))
	for i, idx := range p {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, ".")
}

// IsRoot reports whether p addresses the root.
func (p Path) IsRoot() bool { return len(p) == 0 }

// Parent returns the path of the enclosing decision and the index within it.
func (p Path) Parent() (Path, int) {
	if p.IsRoot() {
		return p, -1
	}
	return p[:len(p)-1], p[len(p)-1]
}

// Child extends p by one index.
func (p Path) Child(i int) Path {
	c := make(Path, len(p), len(p)+1)
	copy(c, p)
	return append(c, i)
}
