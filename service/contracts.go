package service

import (
	"github.com/vocdoni/prodeposit-dapp/controller"
	"github.com/vocdoni/prodeposit-dapp/wallet"
	"github.com/vocdoni/prodeposit-dapp/web3"
)

// ContractsService builds the contract bound to the signer of a wallet
// session.
type ContractsService interface {
	ForSession(session *wallet.Session) controller.Contract
}

// ContractsFunc adapts a function to ContractsService.
type ContractsFunc func(session *wallet.Session) controller.Contract

// ForSession calls f(session).
func (f ContractsFunc) ForSession(session *wallet.Session) controller.Contract {
	return f(session)
}

// Web3Contracts returns a ContractsService backed by the web3 contracts.
func Web3Contracts(contracts *web3.Contracts) ContractsService {
	return ContractsFunc(func(session *wallet.Session) controller.Contract {
		return contracts.Account(session)
	})
}
