package policy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/andrebq/rolegate/internal/logutil"
	"github.com/andrebq/rolegate/internal/lua/luadefaults"
	"github.com/yuin/gluamapper"
	lua "github.com/yuin/gopher-lua"
	"gopkg.in/yaml.v3"
)

type (
	ruleFile struct {
		Rules []Rule `yaml:"rules"`
	}
)

const (
	luaConfigTimeout = 5 * time.Second
)

// Load reads an ordered rule list from file. YAML files look like:
//
//	rules:
//	  - path: /admin
//	    role: ADMIN
//	  - path: /account
//	    authenticated: true
//
// Lua files must return a table with the same shape:
//
//	return { rules = { { path = "/admin", role = "ADMIN" } } }
//
// A file without rules is a ConfigurationError, an empty policy would
// silently expose every route.
func Load(ctx context.Context, file string) (*Policy, error) {
	var (
		rf  ruleFile
		err error
	)
	switch strings.ToLower(filepath.Ext(file)) {
	case ".yaml", ".yml":
		rf, err = loadYAML(file)
	case ".lua":
		rf, err = loadLua(ctx, file)
	default:
		return nil, ConfigurationError{File: file, Rule: -1, Reason: "unsupported file type, expecting .yaml, .yml or .lua"}
	}
	if err != nil {
		return nil, err
	}
	if len(rf.Rules) == 0 {
		return nil, ConfigurationError{File: file, Rule: -1, Reason: "no rules defined"}
	}
	p, err := New(rf.Rules...)
	if err != nil {
		if cfgErr, ok := err.(ConfigurationError); ok {
			cfgErr.File = file
			return nil, cfgErr
		}
		return nil, err
	}
	log := logutil.GetOrDefault(ctx)
	log.Info().Str("policy.file", file).Int("rules", len(p.rules)).Msg("Access policy loaded")
	return p, nil
}

func loadYAML(file string) (ruleFile, error) {
	var rf ruleFile
	data, err := os.ReadFile(file)
	if err != nil {
		return rf, fmt.Errorf("unable to read policy file %v, cause %w", file, err)
	}
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return rf, ConfigurationError{File: file, Rule: -1, Reason: err.Error()}
	}
	return rf, nil
}

func loadLua(ctx context.Context, file string) (ruleFile, error) {
	var rf ruleFile
	if _, err := os.Stat(file); err != nil {
		return rf, fmt.Errorf("unable to read policy file %v, cause %w", file, err)
	}
	ctx, cancel := context.WithTimeout(ctx, luaConfigTimeout)
	defer cancel()
	L := luadefaults.NewConfigState()
	defer L.Close()
	L.SetContext(ctx)
	if err := L.DoFile(file); err != nil {
		return rf, ConfigurationError{File: file, Rule: -1, Reason: err.Error()}
	}
	tbl, ok := L.Get(-1).(*lua.LTable)
	if !ok {
		return rf, ConfigurationError{File: file, Rule: -1, Reason: "script must return a table"}
	}
	L.Pop(1)
	if err := gluamapper.Map(tbl, &rf); err != nil {
		return rf, ConfigurationError{File: file, Rule: -1, Reason: err.Error()}
	}
	return rf, nil
}
