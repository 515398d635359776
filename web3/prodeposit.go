package web3

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ProDepositABI is the input ABI used to generate the binding from.
const ProDepositABI = `[
	{"type":"function","name":"owner","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"address"}]},
	{"type":"function","name":"userDeposits","stateMutability":"view","inputs":[{"name":"","type":"address"}],"outputs":[{"name":"amount","type":"uint256"}]},
	{"type":"function","name":"calculateInterest","stateMutability":"view","inputs":[{"name":"user","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"deposit","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"ownerDeposit","stateMutability":"payable","inputs":[],"outputs":[]}
]`

// ProDeposit is a binding around the ProDeposit contract.
type ProDeposit struct {
	address  common.Address
	contract *bind.BoundContract
}

// ParsedProDepositABI returns the parsed ABI of the ProDeposit contract.
func ParsedProDepositABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(ProDepositABI))
}

// NewProDeposit creates a new instance of ProDeposit, bound to a specific
// deployed contract.
func NewProDeposit(address common.Address, backend bind.ContractBackend) (*ProDeposit, error) {
	parsed, err := ParsedProDepositABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse ProDeposit ABI: %w", err)
	}
	return &ProDeposit{
		address:  address,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

// Address returns the address of the bound contract.
func (p *ProDeposit) Address() common.Address {
	return p.address
}

// Owner is a free data retrieval call binding the contract method 0x8da5cb5b.
//
// Solidity: function owner() view returns(address)
func (p *ProDeposit) Owner(opts *bind.CallOpts) (common.Address, error) {
	var out []interface{}
	if err := p.contract.Call(opts, &out, "owner"); err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// UserDeposits is a free data retrieval call binding the contract method 0x0ba36dcd.
//
// Solidity: function userDeposits(address ) view returns(uint256 amount)
func (p *ProDeposit) UserDeposits(opts *bind.CallOpts, user common.Address) (*big.Int, error) {
	var out []interface{}
	if err := p.contract.Call(opts, &out, "userDeposits", user); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// CalculateInterest is a free data retrieval call binding the contract method 0xe11932cf.
//
// Solidity: function calculateInterest(address user) view returns(uint256)
func (p *ProDeposit) CalculateInterest(opts *bind.CallOpts, user common.Address) (*big.Int, error) {
	var out []interface{}
	if err := p.contract.Call(opts, &out, "calculateInterest", user); err != nil {
		return nil, err
	}
	return *abi.ConvertType(out[0], new(*big.Int)).(**big.Int), nil
}

// Deposit is a paid mutator transaction binding the contract method 0xd0e30db0.
//
// Solidity: function deposit() payable returns()
func (p *ProDeposit) Deposit(opts *bind.TransactOpts) (*types.Transaction, error) {
	return p.contract.Transact(opts, "deposit")
}

// Withdraw is a paid mutator transaction binding the contract method 0x2e1a7d4d.
//
// Solidity: function withdraw(uint256 amount) returns()
func (p *ProDeposit) Withdraw(opts *bind.TransactOpts, amount *big.Int) (*types.Transaction, error) {
	return p.contract.Transact(opts, "withdraw", amount)
}

// OwnerDeposit is a paid mutator transaction binding the contract method 0x7b1aa45f.
//
// Solidity: function ownerDeposit() payable returns()
func (p *ProDeposit) OwnerDeposit(opts *bind.TransactOpts) (*types.Transaction, error) {
	return p.contract.Transact(opts, "ownerDeposit")
}
