package backend

// DefaultBranch is the branch HEAD points to in a freshly initialised
// repository.
const DefaultBranch = "main"

// .git/Config config keys
const (
	CfgCore                  = "core"
	CfgCoreFormatVersion     = "repositoryformatversion"
	CfgCoreFileMode          = "filemode"
	CfgCoreBare              = "bare"
	CfgCoreLogAllRefUpdate   = "logallrefupdates"
	CfgCoreIgnoreCase        = "ignorecase"
	CfgCorePrecomposeUnicode = "precomposeunicode"
)
