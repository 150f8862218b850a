package ginternals

import (
	"path/filepath"
	"sync"

	"github.com/mlaplanche/microgit/internal/gitpath"
	"github.com/mlaplanche/microgit/internal/pathutil"
)

// locatorOnce guards the process-wide memoization of the repository
// root: the walk up the ancestor directories only ever happens once,
// and every subsequent caller observes the same path (or the same
// failure), without repeating the walk.
var (
	locatorOnce sync.Once
	locatedRoot string
	locatedErr  error
)

// LocateRepository walks up from the current working directory until
// it finds one containing a ".git" directory, and returns the absolute
// path of that administrative directory. The result is memoized for
// the lifetime of the process: concurrent callers all observe the same
// root, or the same error, without repeating the walk.
func LocateRepository() (string, error) {
	locatorOnce.Do(func() {
		wt, err := pathutil.WorkingTree()
		if err != nil {
			locatedErr = NewError(KindNotARepository, "ginternals.LocateRepository", "", err)
			return
		}
		locatedRoot = filepath.Join(wt, gitpath.DotGitPath)
	})
	return locatedRoot, locatedErr
}
