// internal/chain/allocator.go
package chain

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
)

const (
	methodNextMatchID      = "nextMatchId"
	methodNextTournamentID = "nextTournamentId"
)

// Only the two read calls the bot needs.
const counterABI = `[
	{"inputs":[],"name":"nextMatchId","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"nextTournamentId","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// Allocator reads the next match and tournament ids from the escrow contracts.
type Allocator struct {
	caller     ethereum.ContractCaller
	abi        abi.ABI
	match      common.Address
	tournament common.Address
}

// Dial connects to a JSON-RPC endpoint.
func Dial(ctx context.Context, rawURL string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to dial %s", rawURL)
	}
	return client, nil
}

func NewAllocator(caller ethereum.ContractCaller, matchContract, tournamentContract string) (*Allocator, error) {
	parsed, err := abi.JSON(strings.NewReader(counterABI))
	if err != nil {
		return nil, errors.Wrap(err, "parse counter abi")
	}

	a := &Allocator{caller: caller, abi: parsed}
	for _, c := range []struct {
		raw  string
		dest *common.Address
	}{
		{matchContract, &a.match},
		{tournamentContract, &a.tournament},
	} {
		if c.raw == "" {
			continue
		}
		if !common.IsHexAddress(c.raw) {
			return nil, errors.Errorf("invalid contract address %q", c.raw)
		}
		*c.dest = common.HexToAddress(c.raw)
	}

	return a, nil
}

func (a *Allocator) NextMatchID(ctx context.Context) (int64, error) {
	return a.read(ctx, a.match, methodNextMatchID)
}

func (a *Allocator) NextTournamentID(ctx context.Context) (int64, error) {
	return a.read(ctx, a.tournament, methodNextTournamentID)
}

func (a *Allocator) read(ctx context.Context, contract common.Address, method string) (int64, error) {
	if contract == (common.Address{}) {
		return 0, errors.Errorf("%s: no contract address configured", method)
	}

	data, err := a.abi.Pack(method)
	if err != nil {
		return 0, errors.Wrapf(err, "pack %s", method)
	}

	out, err := a.caller.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return 0, errors.Wrapf(err, "call %s", method)
	}

	values, err := a.abi.Unpack(method, out)
	if err != nil {
		return 0, errors.Wrapf(err, "unpack %s", method)
	}
	if len(values) != 1 {
		return 0, errors.Errorf("%s returned %d values", method, len(values))
	}

	id, ok := values[0].(*big.Int)
	if !ok || !id.IsInt64() {
		return 0, errors.Errorf("%s returned %v, want an int64", method, values[0])
	}
	return id.Int64(), nil
}
