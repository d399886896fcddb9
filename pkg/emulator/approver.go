package emulator

import (
	"github.com/Layr-Labs/eigenx-ledger-go/pkg/ledger"
)

// Approver stands in for the user pressing buttons on the device.
type Approver interface {
	ApproveAddress(path ledger.DerivationPath, address string) bool
	ApproveSign(path ledger.DerivationPath, message []byte) bool
}

// AutoApprover confirms every request.
type AutoApprover struct{}

func (AutoApprover) ApproveAddress(ledger.DerivationPath, string) bool { return true }
func (AutoApprover) ApproveSign(ledger.DerivationPath, []byte) bool    { return true }

// RejectingApprover refuses every request.
type RejectingApprover struct{}

func (RejectingApprover) ApproveAddress(ledger.DerivationPath, string) bool { return false }
func (RejectingApprover) ApproveSign(ledger.DerivationPath, []byte) bool    { return false }

var (
	_ Approver = AutoApprover{}
	_ Approver = RejectingApprover{}
)
