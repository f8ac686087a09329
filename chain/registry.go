package chain

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

const validatorRegistryABI = `[{"inputs":[],"name":"getValidators","outputs":[{"internalType":"address[]","name":"","type":"address[]"}],"stateMutability":"view","type":"function"}]`

// Registry reads the authoritative validator set from the chain's validator
// registry contract. It implements directory.Lookup.
type Registry struct {
	client   *ethclient.Client
	contract common.Address
	abi      abi.ABI
}

func NewRegistry(rpcURL string, contract string) (*Registry, error) {
	if !common.IsHexAddress(contract) {
		return nil, errors.Errorf("invalid registry contract address [%s]", contract)
	}
	parsed, err := abi.JSON(strings.NewReader(validatorRegistryABI))
	if err != nil {
		return nil, errors.Wrap(err, "parsing registry abi")
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dialing rpc endpoint [%s]", rpcURL)
	}
	return &Registry{
		client:   client,
		contract: common.HexToAddress(contract),
		abi:      parsed,
	}, nil
}

// GetValidators performs the read-only getValidators() call at the latest
// block.
func (r *Registry) GetValidators(ctx context.Context) ([]string, error) {
	input, err := r.abi.Pack("getValidators")
	if err != nil {
		return nil, errors.Wrap(err, "packing call data")
	}

	output, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &r.contract, Data: input}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "calling registry contract")
	}

	results, err := r.abi.Unpack("getValidators", output)
	if err != nil {
		return nil, errors.Wrap(err, "unpacking call result")
	}
	if len(results) != 1 {
		return nil, errors.Errorf("unexpected result length [%d]", len(results))
	}
	addresses, ok := results[0].([]common.Address)
	if !ok {
		return nil, errors.New("unexpected registry response type")
	}

	validators := make([]string, 0, len(addresses))
	for _, address := range addresses {
		validators = append(validators, strings.ToLower(address.Hex()))
	}
	return validators, nil
}

func (r *Registry) Close() {
	r.client.Close()
}
