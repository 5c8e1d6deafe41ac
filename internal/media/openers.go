package media

import (
	_ "embed"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/pelletier/go-toml/v2"

	"github.com/pders01/roundnews/internal/debuglog"
)

//go:embed openers.toml
var openersTOML []byte

// OpenerDefinition describes how an opener is invoked.
type OpenerDefinition struct {
	Description string   `toml:"description"`
	Platforms   []string `toml:"platforms"`
	// Command is the executable when it differs from the opener name.
	Command string      `toml:"command,omitempty"`
	Page    *OpenerArgs `toml:"page,omitempty"`
	Image   *OpenerArgs `toml:"image,omitempty"`
}

type OpenerArgs struct {
	Args        []string `toml:"args,omitempty"`
	ArgsDarwin  []string `toml:"args_darwin,omitempty"`
	ArgsLinux   []string `toml:"args_linux,omitempty"`
	ArgsWindows []string `toml:"args_windows,omitempty"`
}

type OpenersConfig struct {
	Openers map[string]OpenerDefinition `toml:"openers"`
}

type OpenerRegistry struct {
	openers map[string]OpenerDefinition
}

// NewOpenerRegistry loads the built-in definitions and merges user
// overrides from ~/.config/roundnews/openers.toml.
func NewOpenerRegistry() (*OpenerRegistry, error) {
	var cfg OpenersConfig
	if err := toml.Unmarshal(openersTOML, &cfg); err != nil {
		return nil, fmt.Errorf("parsing openers.toml: %w", err)
	}
	r := &OpenerRegistry{openers: cfg.Openers}

	if home, err := os.UserHomeDir(); err == nil {
		r.merge(filepath.Join(home, ".config", "roundnews", "openers.toml"))
	}
	return r, nil
}

func (r *OpenerRegistry) merge(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	var user OpenersConfig
	if err := toml.Unmarshal(data, &user); err != nil {
		debuglog.Warnf("media: ignoring %s: %v", path, err)
		return
	}
	for name, def := range user.Openers {
		r.openers[name] = def
	}
}

// Command builds the command that opens link of kind with name. Openers
// without a definition are run with the link as their only argument.
func (r *OpenerRegistry) Command(name string, kind Kind, link string) (*exec.Cmd, error) {
	def, ok := r.openers[name]
	if !ok {
		return exec.Command(name, link), nil
	}

	if !slices.Contains(def.Platforms, runtime.GOOS) {
		return nil, fmt.Errorf("%s not supported on %s", name, runtime.GOOS)
	}

	kc := def.Page
	if kind == KindImage {
		kc = def.Image
	}
	if kc == nil {
		return nil, fmt.Errorf("%s cannot open %s links", name, kind)
	}

	bin := name
	if def.Command != "" {
		bin = def.Command
	}
	args := append(slices.Clone(kc.args()), link)
	return exec.Command(bin, args...), nil
}

func (k *OpenerArgs) args() []string {
	switch runtime.GOOS {
	case "darwin":
		if len(k.ArgsDarwin) > 0 {
			return k.ArgsDarwin
		}
	case "linux":
		if len(k.ArgsLinux) > 0 {
			return k.ArgsLinux
		}
	case "windows":
		if len(k.ArgsWindows) > 0 {
			return k.ArgsWindows
		}
	}
	return k.Args
}

// Available reports whether the opener's executable is on PATH.
func (r *OpenerRegistry) Available(name string) bool {
	bin := name
	if def, ok := r.openers[name]; ok && def.Command != "" {
		bin = def.Command
	}
	_, err := exec.LookPath(bin)
	return err == nil
}

// FindAvailable returns the first available opener in names.
func (r *OpenerRegistry) FindAvailable(names []string) string {
	for _, name := range names {
		if r.Available(name) {
			return name
		}
	}
	return ""
}
