// Package client implements the PIR reader: bucket-index download, hint
// cache maintenance, query construction and recovery, and the resync
// state machine a thin wallet or indexer embeds (spec.md §4.5).
package client

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/inspirepir/inspire/common"
	"github.com/inspirepir/inspire/inspireerr"
)

// ComputeBalanceSlot derives the Solidity storage slot for an ERC-20
// style `mapping(address => uint256) balances` lookup:
// keccak256(abi.encode(holder, mappingSlot)), i.e. the holder address
// left-padded to 32 bytes concatenated with the mapping's own slot
// number left-padded to 32 bytes.
//
// This is how a client resolves "what raw storage slot holds Alice's
// USDC balance" before handing that slot to ubt.ComputeStorageTreeIndex.
func ComputeBalanceSlot(holder common.Address, mappingSlot uint32) common.StorageKey {
	var input [64]byte
	copy(input[12:32], holder[:])
	binary.BigEndian.PutUint32(input[60:64], mappingSlot)
	return common.StorageKey(common.Keccak256(input[:]))
}

// KnownToken names a contract whose balance-mapping slot is well known,
// letting a client resolve a holder's balance without reading the
// contract's source.
type KnownToken struct {
	Address     common.Address
	BalanceSlot uint32
	Decimals    uint8
	Symbol      string
}

// BalanceStorageKey is a convenience wrapper combining a known token's
// mapping slot with a holder address.
func (t KnownToken) BalanceStorageKey(holder common.Address) common.StorageKey {
	return ComputeBalanceSlot(holder, t.BalanceSlot)
}

// ParseAddressHex parses a 20-byte address from a hex string, with or
// without a leading "0x".
func ParseAddressHex(s string) (common.Address, error) {
	const op = "client.ParseAddressHex"
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != common.AddressLength*2 {
		return common.Address{}, inspireerr.New(inspireerr.Validation, op,
			fmt.Sprintf("expected %d hex characters, got %d", common.AddressLength*2, len(s)))
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return common.Address{}, inspireerr.Wrap(inspireerr.Validation, op, "invalid hex address", err)
	}
	var addr common.Address
	copy(addr[:], decoded)
	return addr, nil
}
