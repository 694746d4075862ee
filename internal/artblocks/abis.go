package artblocks

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Core contract ABIs. Only the read functions the viewer needs are listed.
// projectTokenInfo exists in two incompatible shapes (v0 and v1) that share a
// selector; v3 cores replaced it with projectStateData.
const (
	coreCountersABI = `[
	{"type":"function","name":"nextProjectId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"startingProjectId","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint256"}]}
]`

	coreV0ABI = `[
	{"type":"function","name":"projectTokenInfo","stateMutability":"view",
	 "inputs":[{"name":"","type":"uint256"}],
	 "outputs":[
		{"name":"artistAddress","type":"address"},
		{"name":"pricePerTokenInWei","type":"uint256"},
		{"name":"invocations","type":"uint256"},
		{"name":"maxInvocations","type":"uint256"},
		{"name":"active","type":"bool"},
		{"name":"additionalPayee","type":"address"},
		{"name":"additionalPayeePercentage","type":"uint256"}]}
]`

	coreV1ABI = `[
	{"type":"function","name":"projectTokenInfo","stateMutability":"view",
	 "inputs":[{"name":"_projectId","type":"uint256"}],
	 "outputs":[
		{"name":"artistAddress","type":"address"},
		{"name":"pricePerTokenInWei","type":"uint256"},
		{"name":"invocations","type":"uint256"},
		{"name":"maxInvocations","type":"uint256"},
		{"name":"active","type":"bool"},
		{"name":"additionalPayee","type":"address"},
		{"name":"additionalPayeePercentage","type":"uint256"},
		{"name":"currency","type":"string"},
		{"name":"currencyAddress","type":"address"}]}
]`

	coreV3ABI = `[
	{"type":"function","name":"projectStateData","stateMutability":"view",
	 "inputs":[{"name":"_projectId","type":"uint256"}],
	 "outputs":[
		{"name":"invocations","type":"uint256"},
		{"name":"maxInvocations","type":"uint256"},
		{"name":"active","type":"bool"},
		{"name":"paused","type":"bool"},
		{"name":"completedTimestamp","type":"uint256"},
		{"name":"locked","type":"bool"}]}
]`

	generatorABI = `[
	{"type":"function","name":"getTokenHtml","stateMutability":"view",
	 "inputs":[{"name":"coreContract","type":"address"},{"name":"tokenId","type":"uint256"}],
	 "outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"getTokenHtmlBase64EncodedDataUri","stateMutability":"view",
	 "inputs":[{"name":"coreContract","type":"address"},{"name":"tokenId","type":"uint256"}],
	 "outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"getProjectScript","stateMutability":"view",
	 "inputs":[{"name":"coreContract","type":"address"},{"name":"projectId","type":"uint256"}],
	 "outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"getOnChainStatus","stateMutability":"view",
	 "inputs":[{"name":"coreContract","type":"address"},{"name":"projectId","type":"uint256"}],
	 "outputs":[
		{"name":"dependencyFullyOnChain","type":"bool"},
		{"name":"injectsDecentralizedStorageNetworkAssets","type":"bool"},
		{"name":"hasOffChainFlexDepRegDependencies","type":"bool"}]}
]`

	dependencyRegistryABI = `[
	{"type":"function","name":"getSupportedCoreContracts","stateMutability":"view",
	 "inputs":[],"outputs":[{"name":"","type":"address[]"}]}
]`
)

// Parsed ABIs, exported for fakes that need to encode return data.
var (
	CoreCountersABI       = mustParse(coreCountersABI)
	CoreV0ABI             = mustParse(coreV0ABI)
	CoreV1ABI             = mustParse(coreV1ABI)
	CoreV3ABI             = mustParse(coreV3ABI)
	GeneratorABI          = mustParse(generatorABI)
	DependencyRegistryABI = mustParse(dependencyRegistryABI)
)

func mustParse(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic("artblocks: invalid embedded ABI: " + err.Error())
	}
	return parsed
}
