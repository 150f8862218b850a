package fsbackend

import (
	"os"
	"path/filepath"

	"github.com/mlaplanche/microgit/backend"
	"github.com/mlaplanche/microgit/internal/gitpath"
	"golang.org/x/xerrors"
	"gopkg.in/ini.v1"
)

// setDefaultCfg set and persists the default git configuration for
// the repository
func (b *Backend) setDefaultCfg() error {
	cfg := ini.Empty()

	// Core
	core, err := cfg.NewSection(backend.CfgCore)
	if err != nil {
		return xerrors.Errorf("could not create core section: %w", err)
	}
	coreCfg := map[string]string{
		backend.CfgCoreFormatVersion:     "0",
		backend.CfgCoreFileMode:          "true",
		backend.CfgCoreBare:              "false",
		backend.CfgCoreLogAllRefUpdate:   "true",
		backend.CfgCoreIgnoreCase:        "true",
		backend.CfgCorePrecomposeUnicode: "true",
	}
	for k, v := range coreCfg {
		if _, err := core.NewKey(k, v); err != nil {
			return xerrors.Errorf("could not set %s: %w", k, err)
		}
	}

	f, err := b.fs.OpenFile(filepath.Join(b.root, gitpath.ConfigPath), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return xerrors.Errorf("could not create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := cfg.WriteTo(f); err != nil {
		return xerrors.Errorf("could not write config file: %w", err)
	}
	return nil
}
