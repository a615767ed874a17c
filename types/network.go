package types

import "strconv"

// ChainID identifies an EVM chain by its EIP-155 chain id.
type ChainID uint64

const (
	ChainSepolia         ChainID = 11155111
	ChainOptimismSepolia ChainID = 11155420
	ChainArbitrumSepolia ChainID = 421614
	ChainPolygonAmoy     ChainID = 80002
	ChainBaseSepolia     ChainID = 84532
)

func (c ChainID) String() string {
	return strconv.FormatUint(uint64(c), 10)
}

// DefaultChains returns the testnet deployment table. Contract addresses are
// left empty and are expected from configuration or the environment.
func DefaultChains() map[ChainID]ChainConfig {
	return map[ChainID]ChainConfig{
		ChainSepolia: {
			Name:   "sepolia",
			RPCURL: "https://rpc.sepolia.org",
			RPCEnv: "SEPOLIA_RPC_URL",
		},
		ChainOptimismSepolia: {
			Name:   "optimism-sepolia",
			RPCURL: "https://sepolia.optimism.io",
			RPCEnv: "OPTIMISM_SEPOLIA_RPC_URL",
		},
		ChainArbitrumSepolia: {
			Name:   "arbitrum-sepolia",
			RPCURL: "https://sepolia-rollup.arbitrum.io/rpc",
			RPCEnv: "ARBITRUM_SEPOLIA_RPC_URL",
		},
		ChainPolygonAmoy: {
			Name:   "polygon-amoy",
			RPCURL: "https://rpc-amoy.polygon.technology",
			RPCEnv: "POLYGON_AMOY_RPC_URL",
		},
		ChainBaseSepolia: {
			Name:   "base-sepolia",
			RPCURL: "https://sepolia.base.org",
			RPCEnv: "BASE_SEPOLIA_RPC_URL",
		},
	}
}
