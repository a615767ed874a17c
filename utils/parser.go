package utils

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/vitwit/heka402/types"
)

// ContractEnv supplies the settlement contract address for chains whose
// configuration leaves it empty.
const ContractEnv = "HEKA402_CONTRACT_ADDRESS"

var validate *validator.Validate

func init() {
	validate = validator.New()
}

// LookupFunc resolves environment variables. os.LookupEnv satisfies it.
type LookupFunc func(key string) (string, bool)

// LoadConfig reads and parses a YAML (or JSON) configuration file.
func LoadConfig(path string) (*types.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.HekaError{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("failed to read config %s", path),
			Err:     err,
		}
	}
	return ParseConfig(data, os.LookupEnv)
}

// ParseConfig parses a configuration document, fills gaps from the default
// chain table, applies environment overrides and validates the result.
func ParseConfig(data []byte, lookup LookupFunc) (*types.Config, error) {
	var cfg types.Config

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, &types.HekaError{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("failed to parse config: %v", err),
			Err:     err,
		}
	}

	if err := FinalizeConfig(&cfg, lookup); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FinalizeConfig completes a configuration built in code or parsed from a
// file and validates it.
func FinalizeConfig(cfg *types.Config, lookup LookupFunc) error {
	if lookup == nil {
		lookup = func(string) (string, bool) { return "", false }
	}

	defaults := types.DefaultChains()
	for id, cc := range cfg.Chains {
		if d, ok := defaults[id]; ok {
			if cc.Name == "" {
				cc.Name = d.Name
			}
			if cc.RPCURL == "" {
				cc.RPCURL = d.RPCURL
			}
			if cc.RPCEnv == "" {
				cc.RPCEnv = d.RPCEnv
			}
		}
		if cc.Name == "" {
			cc.Name = id.String()
		}
		if cc.RPCEnv != "" {
			if v, ok := lookup(cc.RPCEnv); ok && v != "" {
				cc.RPCURL = v
			}
		}
		if cc.Contract == "" {
			if v, ok := lookup(ContractEnv); ok {
				cc.Contract = v
			}
		}
		cfg.Chains[id] = cc
	}

	cfg.ApplyDefaults()

	if err := validate.Struct(cfg); err != nil {
		return &types.HekaError{
			Code:    types.ErrConfig,
			Message: fmt.Sprintf("validation failed: %v", err),
			Err:     err,
		}
	}
	if !cfg.IsSupported(cfg.ActiveChain) {
		return types.NewError(types.ErrConfig, "active chain %d is not configured", cfg.ActiveChain)
	}
	return nil
}

// MarshalConfig renders cfg as YAML.
func MarshalConfig(cfg *types.Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
